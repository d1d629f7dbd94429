package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"proxyfinder/internal/shared/logger"
	manager "proxyfinder/proxypool"
	"proxyfinder/proxypool/model"
	"proxyfinder/proxypool/scraper"
	"proxyfinder/proxypool/storage"
)

// ErrInterrupted is returned by Run when the user cancels the run.
var ErrInterrupted = errors.New("interrupted by user")

// Finder 是 App 依赖的代理查找能力，*manager.Manager 是其实现。
type Finder interface {
	Discover(ctx context.Context) (model.EndpointSet, scraper.Report)
	Import(path string) (model.EndpointSet, error)
	Check(ctx context.Context, set model.EndpointSet, report func(model.Outcome)) manager.Result
	Save(path string, lines []string) error
}

// Options 控制交互流程。
type Options struct {
	InputPath   string // 非空时从文件导入代理，跳过抓取
	AssumeYes   bool   // 对所有 y/n 提示回答 y
	DefaultFile string // 保存提示的默认路径
	Progress    bool   // 使用进度条代替逐行输出
}

// App 是交互式命令行流程：抓取 -> 询问是否验证 -> 询问是否保存。
type App struct {
	finder Finder
	prompt *Prompter
	out    io.Writer
	theme  Theme
	opts   Options
}

// New 创建一个 App。
func New(finder Finder, theme Theme, in io.Reader, out io.Writer, opts Options) *App {
	if opts.DefaultFile == "" {
		opts.DefaultFile = "proxies.txt"
	}
	return &App{
		finder: finder,
		prompt: NewPrompter(in),
		out:    out,
		theme:  theme,
		opts:   opts,
	}
}

// Run 执行一次完整流程。除 ErrInterrupted 外，单步失败只提示用户，不返回错误。
func (a *App) Run(ctx context.Context) error {
	l := logger.WithComponent("App")
	printLine(a.out, a.theme.Banner, "=== PROXY FINDER TOOL ===")

	set, ok := a.load(ctx)
	if ctx.Err() != nil {
		return ErrInterrupted
	}
	if !ok {
		return nil
	}
	if set.Len() == 0 {
		printLine(a.out, a.theme.Error, "[!] No proxies found from all sources.")
		return nil
	}
	printLine(a.out, a.theme.Plain, "Found %d unique proxies.", set.Len())

	toSave := set.Strings()

	printLine(a.out, a.theme.Prompt, "Do you want to check which proxies are working? (y/n)")
	check, err := a.confirm(ctx)
	if err != nil {
		return ErrInterrupted
	}
	if check {
		printLine(a.out, a.theme.Banner, "[=] Checking proxies...")
		rep := a.reporter(set.Len())
		res := a.finder.Check(ctx, set, rep.Report)
		rep.Finish()

		l.Info().
			Int("total", res.Total).
			Int("working", len(res.Working)).
			Int("failed", len(res.Failed)).
			Bool("interrupted", res.Interrupted).
			Msg("Check finished.")
		for kind, n := range res.Failures {
			l.Debug().Str("failure", kind.String()).Int("count", n).Msg("Failure breakdown.")
		}

		if res.Interrupted {
			return ErrInterrupted
		}
		if len(res.Working) == 0 {
			printLine(a.out, a.theme.Error, "[!] No working proxies found.")
			return nil
		}
		printLine(a.out, a.theme.Status, "[+] %d working proxies found.", len(res.Working))
		toSave = res.WorkingStrings()
	}

	printLine(a.out, a.theme.Plain, "Do you want to save the proxies to a file? (y/n)")
	save, err := a.confirm(ctx)
	if err != nil {
		return ErrInterrupted
	}
	if !save {
		printLine(a.out, a.theme.Prompt, "[+] Finished. You can now use the proxies.")
		return nil
	}
	return a.save(ctx, toSave)
}

// load 抓取或导入代理。返回 false 表示已向用户报告错误，流程应结束。
func (a *App) load(ctx context.Context) (model.EndpointSet, bool) {
	if a.opts.InputPath != "" {
		printLine(a.out, a.theme.Status, "[~] Loading proxies from %s...", a.opts.InputPath)
		set, err := a.finder.Import(a.opts.InputPath)
		if err != nil {
			printLine(a.out, a.theme.Error, "[!] Failed to load proxies: %v", err)
			return model.EndpointSet{}, false
		}
		return set, true
	}

	printLine(a.out, a.theme.Status, "[~] Fetching proxies from multiple sources...")
	set, report := a.finder.Discover(ctx)
	if ctx.Err() != nil {
		return set, false
	}
	for _, f := range report.Failures {
		printLine(a.out, a.theme.Error, "[!] Error fetching proxies from %s: %v", f.Source, f.Err)
	}
	return set, true
}

func (a *App) save(ctx context.Context, lines []string) error {
	printLine(a.out, a.theme.Banner, "[*] Choose where to save proxies...")

	path := a.opts.DefaultFile
	if !a.opts.AssumeYes {
		fmt.Fprintf(a.out, "Save proxy list as [%s]: ", a.opts.DefaultFile)
		line, err := a.prompt.ReadLine(ctx)
		switch {
		case err == io.EOF:
			path = ""
		case err != nil:
			return ErrInterrupted
		case line != "":
			path = line
		}
	}

	if err := a.finder.Save(path, lines); err != nil {
		if errors.Is(err, storage.ErrNoDestination) {
			printLine(a.out, a.theme.Error, "[!] No save location selected.")
			return nil
		}
		printLine(a.out, a.theme.Error, "[!] Failed to save proxies: %v", err)
		return nil
	}
	printLine(a.out, a.theme.Plain, "[✓] Proxies saved to: %s", path)
	return nil
}

func (a *App) confirm(ctx context.Context) (bool, error) {
	if a.opts.AssumeYes {
		fmt.Fprintln(a.out, " > y")
		return true, nil
	}
	fmt.Fprint(a.out, " > ")
	return a.prompt.Confirm(ctx)
}

func (a *App) reporter(total int) outcomeReporter {
	if a.opts.Progress {
		return newBarReporter(a.out, total)
	}
	return &lineReporter{out: a.out, theme: a.theme}
}
