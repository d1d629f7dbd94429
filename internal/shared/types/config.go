package types

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// ValidatorConf 控制代理验证引擎。
type ValidatorConf struct {
	Concurrency int    `ini:"concurrency"` // 同时在途的探测数上限
	TargetURL   string `ini:"target_url"`  // 通过代理访问的固定目标
	UserAgent   string `ini:"user_agent"`
}

// ScraperConf 控制代理来源。
type ScraperConf struct {
	Sources     []string `ini:"sources" delim:","`      // HTML 表格来源, 为空时使用内置的四个站点
	ListSources []string `ini:"list_sources" delim:","` // 纯文本列表来源
	TimeoutMs   int      `ini:"timeout_ms"`
	UserAgent   string   `ini:"user_agent"`
}

// OutputConf 控制交互输出与保存。
type OutputConf struct {
	Color       bool   `ini:"color"`
	Progress    bool   `ini:"progress"` // 使用进度条代替逐行输出
	DefaultFile string `ini:"default_file"`
}

// Config 是 proxyfinder 的统一配置结构体
type Config struct {
	LogConf       `ini:"log"`
	ValidatorConf `ini:"validator"`
	ScraperConf   `ini:"scraper"`
	OutputConf    `ini:"output"`
}

// DefaultConfig 返回配置文件缺失时使用的默认值。
func DefaultConfig() *Config {
	return &Config{
		LogConf: LogConf{Level: "warn"},
		ValidatorConf: ValidatorConf{
			Concurrency: 50,
			TargetURL:   "http://httpbin.org/ip",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/115.0.0.0 Safari/537.36",
		},
		ScraperConf: ScraperConf{
			TimeoutMs: 10000,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/115.0.0.0 Safari/537.36",
		},
		OutputConf: OutputConf{
			Color:       true,
			DefaultFile: "proxies.txt",
		},
	}
}
