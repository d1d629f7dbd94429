package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"proxyfinder/internal/shared/logger"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/115.0.0.0 Safari/537.36"
	defaultTimeout   = 10 * time.Second
)

// Scraper 接口定义了从代理源抓取原始代理字符串的行为。
type Scraper interface {
	// Scrape 执行抓取操作，返回形如 "scheme://host:port" 的原始字符串。
	// 实现者只负责抓取和初步解析，不做校验与去重。
	Scrape(ctx context.Context) ([]string, error)

	// Name 返回抓取器的名称，用于日志记录。
	Name() string
}

// SourceError 表示单个代理源抓取失败。它只会被记录，不会中断其他来源。
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Report 汇总一次多来源抓取的结果。
type Report struct {
	Proxies   []string       // 按来源顺序拼接的原始字符串
	PerSource map[string]int // 每个来源贡献的条数
	Failures  []*SourceError
}

// DefaultSourceURLs 是内置的四个 HTML 表格来源。
var DefaultSourceURLs = []string{
	"https://free-proxy-list.net/",
	"https://www.us-proxy.org/",
	"https://www.sslproxies.org/",
	"https://www.socks-proxy.net/",
}

// DefaultSources 为内置来源创建抓取器。
func DefaultSources(userAgent string, timeout time.Duration) []Scraper {
	return TableSources(DefaultSourceURLs, userAgent, timeout)
}

// TableSources 为一组 HTML 表格页面创建抓取器。
func TableSources(urls []string, userAgent string, timeout time.Duration) []Scraper {
	scrapers := make([]Scraper, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		scrapers = append(scrapers, NewTableScraper(u, userAgent, timeout))
	}
	return scrapers
}

// ListSources 为一组纯文本列表创建抓取器。
func ListSources(urls []string, userAgent string, timeout time.Duration) []Scraper {
	scrapers := make([]Scraper, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		scrapers = append(scrapers, NewListScraper(u, userAgent, timeout))
	}
	return scrapers
}

// FetchAll 并发执行所有抓取器。单个来源失败只记录日志，结果中不含该来源的数据。
func FetchAll(ctx context.Context, scrapers []Scraper) Report {
	l := logger.WithComponent("ProxyPool/Scraper")

	results := make([][]string, len(scrapers))
	errs := make([]error, len(scrapers))

	var g errgroup.Group
	for i, s := range scrapers {
		g.Go(func() error {
			proxies, err := s.Scrape(ctx)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = proxies
			return nil
		})
	}
	_ = g.Wait()

	report := Report{PerSource: make(map[string]int, len(scrapers))}
	for i, s := range scrapers {
		if errs[i] != nil {
			srcErr := &SourceError{Source: s.Name(), Err: errs[i]}
			l.Warn().Err(errs[i]).Str("source", s.Name()).Msg("Scraper failed.")
			report.Failures = append(report.Failures, srcErr)
			continue
		}
		report.PerSource[s.Name()] = len(results[i])
		report.Proxies = append(report.Proxies, results[i]...)
	}

	l.Info().
		Int("sources", len(scrapers)).
		Int("failed", len(report.Failures)).
		Int("count", len(report.Proxies)).
		Msg("Fetch finished.")
	return report
}

func sourceName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

func orDefault(userAgent string, timeout time.Duration) (string, time.Duration) {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return userAgent, timeout
}

// contextTransport 把请求绑定到抓取的 ctx 上，中断时正在进行的请求会被取消。
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(r.WithContext(t.ctx))
}

func newContextTransport(ctx context.Context) http.RoundTripper {
	return contextTransport{ctx: ctx, base: http.DefaultTransport}
}
