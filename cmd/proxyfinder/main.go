package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"proxyfinder/internal/app"
	"proxyfinder/internal/shared/config"
	"proxyfinder/internal/shared/logger"
	manager "proxyfinder/proxypool"
)

func main() {
	configDir := flag.String("configdir", "configs", "Path to config directory")
	input := flag.String("input", "", "Validate proxies from this file instead of scraping")
	assumeYes := flag.Bool("yes", false, "Answer yes to every prompt")
	outFile := flag.String("out", "", "Default file to save proxies to")
	concurrency := flag.Int("concurrency", 0, "Maximum probes in flight (overrides config)")
	flag.Parse()

	iniPath := filepath.Join(*configDir, "proxyfinder.ini")

	// 1. 加载 .ini 配置
	cfg, err := config.LoadIni(iniPath)
	if err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", iniPath, err)
		os.Exit(1)
	}
	if *concurrency > 0 {
		cfg.ValidatorConf.Concurrency = *concurrency
	}
	if *outFile != "" {
		cfg.OutputConf.DefaultFile = *outFile
	}

	// 1.1 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// 2. 组装代理查找管理器
	mgr, err := manager.NewFromConfig(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build proxy manager")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. 运行交互流程
	theme := app.NewTheme(cfg.OutputConf.Color)
	a := app.New(mgr, theme, os.Stdin, os.Stdout, app.Options{
		InputPath:   *input,
		AssumeYes:   *assumeYes,
		DefaultFile: cfg.OutputConf.DefaultFile,
		Progress:    cfg.OutputConf.Progress,
	})

	if err := a.Run(ctx); err != nil {
		if errors.Is(err, app.ErrInterrupted) {
			theme.Error.Fprintln(os.Stdout, "\nInterrupted by user. Exiting.")
			return
		}
		logger.Error().Err(err).Msg("Run failed")
	}
}
