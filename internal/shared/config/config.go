package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/ini.v1"
	"proxyfinder/internal/shared/types"
)

const (
	EnvConcurrency = "PROXYFINDER_CONCURRENCY"
	EnvLogLevel    = "PROXYFINDER_LOG_LEVEL"
)

// LoadIni 加载 proxyfinder.ini 并叠加环境变量。
// 文件不存在时返回默认配置，不视为错误。
func LoadIni(fileName string) (*types.Config, error) {
	cfg := types.DefaultConfig()

	if _, err := os.Stat(fileName); err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	iniFile, err := ini.Load(fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return nil, fmt.Errorf("failed to map config file: %w", err)
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *types.Config) {
	overrideFromEnvInt(&cfg.ValidatorConf.Concurrency, EnvConcurrency)
	overrideFromEnvString(&cfg.LogConf.Level, EnvLogLevel)
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}
