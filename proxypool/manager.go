package manager

import (
	"context"
	"sort"
	"strings"
	"time"

	"proxyfinder/internal/shared/logger"
	"proxyfinder/internal/shared/types"
	"proxyfinder/proxypool/model"
	"proxyfinder/proxypool/scraper"
	"proxyfinder/proxypool/storage"
	"proxyfinder/proxypool/validator"
)

// Validator 是验证引擎的抽象，*validator.Engine 是其实现。
type Validator interface {
	Validate(ctx context.Context, set model.EndpointSet) <-chan model.Outcome
}

// Result 是一轮验证的汇总。
type Result struct {
	Total       int // 参与验证的代理数
	Working     []model.Endpoint
	Failed      []model.Endpoint
	Failures    map[model.FailureKind]int
	Interrupted bool
}

// WorkingStrings 返回可用代理的规范字符串列表。
func (r Result) WorkingStrings() []string {
	out := make([]string, 0, len(r.Working))
	for _, ep := range r.Working {
		out = append(out, ep.String())
	}
	return out
}

// Manager 是代理查找流程的总控制器：抓取 -> 去重 -> 验证 -> 汇总 -> 保存。
type Manager struct {
	scrapers  []scraper.Scraper
	validator Validator
	sink      storage.Sink
}

// NewManager 创建代理查找管理器。
func NewManager(v Validator, sink storage.Sink, scrapers ...scraper.Scraper) *Manager {
	return &Manager{
		scrapers:  scrapers,
		validator: v,
		sink:      sink,
	}
}

// NewFromConfig 根据配置组装抓取器、探测器、验证引擎与存储。
func NewFromConfig(cfg *types.Config) (*Manager, error) {
	prober, err := newProber(cfg.ValidatorConf)
	if err != nil {
		return nil, err
	}
	engine := validator.NewEngine(prober, cfg.ValidatorConf.Concurrency)

	scrapeTimeout := time.Duration(cfg.ScraperConf.TimeoutMs) * time.Millisecond
	var scrapers []scraper.Scraper
	if len(cfg.ScraperConf.Sources) > 0 {
		scrapers = scraper.TableSources(cfg.ScraperConf.Sources, cfg.ScraperConf.UserAgent, scrapeTimeout)
	} else {
		scrapers = scraper.DefaultSources(cfg.ScraperConf.UserAgent, scrapeTimeout)
	}
	scrapers = append(scrapers, scraper.ListSources(cfg.ScraperConf.ListSources, cfg.ScraperConf.UserAgent, scrapeTimeout)...)

	return NewManager(engine, storage.NewFileSink(), scrapers...), nil
}

// newProber 构造探测器。探测超时固定为 validator.DefaultTimeout，不可配置。
func newProber(conf types.ValidatorConf) (*validator.Prober, error) {
	return validator.NewProber(conf.TargetURL, validator.DefaultTimeout, conf.UserAgent)
}

// Sources 返回已注册的抓取器数量。
func (m *Manager) Sources() int {
	return len(m.scrapers)
}

// Discover 从所有来源抓取并去重。来源失败记录在 Report 中，不会返回错误。
func (m *Manager) Discover(ctx context.Context) (model.EndpointSet, scraper.Report) {
	l := logger.WithComponent("ProxyPool/Manager")

	report := scraper.FetchAll(ctx, m.scrapers)
	set, stats := model.DedupeWithStats(report.Proxies)

	l.Info().
		Int("raw", stats.Input).
		Int("malformed", stats.Malformed).
		Int("duplicates", stats.Duplicates).
		Int("unique", set.Len()).
		Msg("Discovery finished.")
	return set, report
}

// Import 读取已保存的代理列表并去重，用于重新验证。
func (m *Manager) Import(path string) (model.EndpointSet, error) {
	lines, err := m.sink.Load(path)
	if err != nil {
		return model.EndpointSet{}, err
	}
	set, stats := model.DedupeWithStats(scraper.ParseList([]byte(strings.Join(lines, "\n"))))
	l := logger.WithComponent("ProxyPool/Manager")
	l.Info().
		Int("raw", stats.Input).
		Int("malformed", stats.Malformed).
		Int("unique", set.Len()).
		Str("path", path).
		Msg("Import finished.")
	return set, nil
}

// Check 验证集合中的所有代理，每得到一个结果就调用一次 report。
// 空集合不会启动验证引擎。
func (m *Manager) Check(ctx context.Context, set model.EndpointSet, report func(model.Outcome)) Result {
	if set.Len() == 0 {
		return Result{Failures: make(map[model.FailureKind]int)}
	}
	res := Collect(ctx, m.validator.Validate(ctx, set), report)
	res.Total = set.Len()
	return res
}

// Save 将代理列表写入 path。
func (m *Manager) Save(path string, lines []string) error {
	return m.sink.Save(path, lines)
}

// Collect 消费结果流，把代理划分为可用与不可用。
// ctx 结束时立即返回并标记 Interrupted，不等待剩余结果。
func Collect(ctx context.Context, outcomes <-chan model.Outcome, report func(model.Outcome)) Result {
	res := Result{Failures: make(map[model.FailureKind]int)}

loop:
	for {
		select {
		case <-ctx.Done():
			res.Interrupted = true
			break loop
		case out, ok := <-outcomes:
			if !ok {
				break loop
			}
			if report != nil {
				report(out)
			}
			if out.Reachable {
				res.Working = append(res.Working, out.Endpoint)
			} else {
				res.Failed = append(res.Failed, out.Endpoint)
				res.Failures[out.Failure]++
			}
		}
	}

	if !res.Interrupted && ctx.Err() != nil {
		res.Interrupted = true
	}
	res.Total = len(res.Working) + len(res.Failed)
	sortEndpoints(res.Working)
	sortEndpoints(res.Failed)
	return res
}

func sortEndpoints(eps []model.Endpoint) {
	sort.Slice(eps, func(i, j int) bool {
		return eps[i].String() < eps[j].String()
	})
}
