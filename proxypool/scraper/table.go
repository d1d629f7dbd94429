package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"proxyfinder/internal/shared/logger"
)

var (
	// ErrTableNotFound 表示页面中没有代理表格。
	ErrTableNotFound = errors.New("proxy table not found")
	// ErrTbodyNotFound 表示代理表格缺少 tbody。
	ErrTbodyNotFound = errors.New("table tbody not found")
)

const minTableColumns = 8

// TableScraper 抓取 free-proxy-list.net 一类站点的代理表格。
// 表格列依次为 IP、端口、国家代码、国家、匿名度、Google、Https、最后检查时间。
type TableScraper struct {
	pageURL   string
	userAgent string
	timeout   time.Duration
}

// NewTableScraper 创建一个新的 TableScraper 实例。
func NewTableScraper(pageURL, userAgent string, timeout time.Duration) *TableScraper {
	userAgent, timeout = orDefault(userAgent, timeout)
	return &TableScraper{
		pageURL:   pageURL,
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// Name 返回抓取器的名称。
func (s *TableScraper) Name() string {
	return sourceName(s.pageURL)
}

// Scrape 执行抓取操作。
func (s *TableScraper) Scrape(ctx context.Context) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Scraper")
	l.Debug().Str("source", s.Name()).Str("url", s.pageURL).Msg("Starting scrape...")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(s.timeout)
	c.WithTransport(newContextTransport(ctx))

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	var (
		proxies  []string
		found    bool
		parseErr error
		fetchErr error
	)

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("received status code %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	c.OnHTML("table", func(e *colly.HTMLElement) {
		if found || !isProxyTable(e.Attr("id"), e.Attr("class")) {
			return
		}
		found = true

		tbody := e.DOM.Find("tbody").First()
		if tbody.Length() == 0 {
			parseErr = ErrTbodyNotFound
			return
		}

		tbody.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cols := row.Find("td")
			if cols.Length() < minTableColumns {
				return
			}
			ip := strings.TrimSpace(cols.Eq(0).Text())
			port := strings.TrimSpace(cols.Eq(1).Text())
			if ip == "" || port == "" {
				return
			}
			scheme := "http"
			if strings.EqualFold(strings.TrimSpace(cols.Eq(6).Text()), "yes") {
				scheme = "https"
			}
			proxies = append(proxies, scheme+"://"+ip+":"+port)
		})
	})

	visitErr := c.Visit(s.pageURL)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if visitErr != nil {
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, visitErr
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if !found {
		return nil, ErrTableNotFound
	}
	if parseErr != nil {
		return nil, parseErr
	}

	l.Debug().Int("count", len(proxies)).Str("source", s.Name()).Msg("Scrape finished.")
	return proxies, nil
}

// isProxyTable 判断表格是否为代理列表：id 包含 proxylisttable，或 class 中含有 table。
func isProxyTable(id, class string) bool {
	if strings.Contains(id, "proxylisttable") {
		return true
	}
	for _, c := range strings.Fields(class) {
		if c == "table" {
			return true
		}
	}
	return false
}
