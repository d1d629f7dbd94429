package storage

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"proxyfinder/internal/shared/logger"
)

// ErrNoDestination 表示没有选择保存位置。
var ErrNoDestination = errors.New("no save location selected")

// Sink 接口定义了代理列表持久化的行为。
type Sink interface {
	Save(path string, lines []string) error
	Load(path string) ([]string, error)
}

// FileSink 实现了 Sink 接口，使用纯文本文件，每行一个代理。
type FileSink struct {
	mu sync.Mutex
}

// NewFileSink 创建一个新的 FileSink 实例。
func NewFileSink() *FileSink {
	return &FileSink{}
}

// Save 将代理列表以换行连接后写入文件 (UTF-8)。
// 先写临时文件再重命名，避免留下写了一半的文件。
func (fs *FileSink) Save(path string, lines []string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return ErrNoDestination
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	l := logger.WithComponent("ProxyPool/Storage")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(strings.Join(lines, "\n")); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write proxies: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move proxies into place: %w", err)
	}

	l.Info().Int("count", len(lines)).Str("path", path).Msg("Successfully saved proxies to file.")
	return nil
}

// Load 读取之前保存的代理列表，跳过空行。
func (fs *FileSink) Load(path string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrNoDestination
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	l := logger.WithComponent("ProxyPool/Storage")

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open proxy list: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read proxy list: %w", err)
	}

	l.Info().Int("count", len(lines)).Str("path", path).Msg("Successfully loaded proxies from file.")
	return lines, nil
}
