package app

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Theme 持有交互输出使用的颜色。由调用方构造并传入，不使用全局变量。
type Theme struct {
	Error      *color.Color
	Plain      *color.Color
	Prompt     *color.Color
	Working    *color.Color
	Banner     *color.Color
	Status     *color.Color
	NotWorking *color.Color
}

// NewTheme 返回默认配色。enabled 为 false 时输出不含 ANSI 转义码；
// 否则由 color 包按终端类型自动判断。
func NewTheme(enabled bool) Theme {
	t := Theme{
		Error:      color.New(color.FgHiRed),
		Plain:      color.New(color.FgHiWhite),
		Prompt:     color.New(color.FgHiBlue),
		Working:    color.New(color.FgBlue),
		Banner:     color.New(color.FgHiCyan),
		Status:     color.New(color.FgCyan),
		NotWorking: color.New(color.FgHiBlue),
	}
	if !enabled {
		for _, c := range t.all() {
			c.DisableColor()
		}
	}
	return t
}

func (t Theme) all() []*color.Color {
	return []*color.Color{t.Error, t.Plain, t.Prompt, t.Working, t.Banner, t.Status, t.NotWorking}
}

func printLine(w io.Writer, c *color.Color, format string, args ...interface{}) {
	c.Fprintln(w, fmt.Sprintf(format, args...))
}
