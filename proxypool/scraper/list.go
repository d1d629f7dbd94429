package scraper

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"proxyfinder/internal/shared/logger"
)

// ListScraper 抓取每行一个代理的纯文本列表。
// 没有协议前缀的行按 http 处理。
type ListScraper struct {
	listURL   string
	userAgent string
	timeout   time.Duration
}

// NewListScraper 创建一个新的 ListScraper 实例。
func NewListScraper(listURL, userAgent string, timeout time.Duration) *ListScraper {
	userAgent, timeout = orDefault(userAgent, timeout)
	return &ListScraper{
		listURL:   listURL,
		userAgent: userAgent,
		timeout:   timeout,
	}
}

func (s *ListScraper) Name() string {
	return sourceName(s.listURL)
}

func (s *ListScraper) Scrape(ctx context.Context) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Scraper")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(s.timeout)
	c.WithTransport(newContextTransport(ctx))

	var (
		proxies  []string
		fetchErr error
	)

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("received status code %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	c.OnResponse(func(r *colly.Response) {
		proxies = ParseList(r.Body)
	})

	if err := c.Visit(s.listURL); err != nil {
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, err
	}
	if fetchErr != nil {
		return nil, fetchErr
	}

	l.Debug().Int("count", len(proxies)).Str("source", s.Name()).Msg("Scrape finished.")
	return proxies, nil
}

// ParseList 解析纯文本代理列表，跳过空行与 # 注释。
func ParseList(body []byte) []string {
	var proxies []string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if fields := strings.Fields(line); len(fields) > 1 {
			line = fields[0]
		}
		if !strings.Contains(line, "://") {
			line = "http://" + line
		}
		proxies = append(proxies, line)
	}
	return proxies
}
