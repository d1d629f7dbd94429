package app

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

// Prompter 从输入流逐行读取用户输入。读取在后台 goroutine 中进行，
// 因此等待输入时也能响应 ctx 取消。
type Prompter struct {
	in    io.Reader
	once  sync.Once
	lines chan string
}

// NewPrompter 创建一个新的 Prompter。
func NewPrompter(in io.Reader) *Prompter {
	return &Prompter{in: in}
}

func (p *Prompter) start() {
	p.lines = make(chan string)
	go func() {
		defer close(p.lines)
		scanner := bufio.NewScanner(p.in)
		for scanner.Scan() {
			p.lines <- scanner.Text()
		}
	}()
}

// ReadLine 返回下一行输入 (已去除首尾空白)。输入结束时返回 io.EOF。
func (p *Prompter) ReadLine(ctx context.Context) (string, error) {
	p.once.Do(p.start)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

// Confirm 读取一行并判断是否为 y/yes。输入结束视为否。
func (p *Prompter) Confirm(ctx context.Context) (bool, error) {
	line, err := p.ReadLine(ctx)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
