package app

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"proxyfinder/proxypool/model"
)

// outcomeReporter 在验证过程中展示每个结果。
type outcomeReporter interface {
	Report(out model.Outcome)
	Finish()
}

// lineReporter 每个结果输出一行，与结果到达顺序一致。
type lineReporter struct {
	out   io.Writer
	theme Theme
}

func (r *lineReporter) Report(o model.Outcome) {
	if o.Reachable {
		printLine(r.out, r.theme.Working, "[+] %s is working", o.Endpoint)
		return
	}
	printLine(r.out, r.theme.NotWorking, "[-] %s is not working", o.Endpoint)
}

func (r *lineReporter) Finish() {}

// barReporter 用进度条代替逐行输出，适合大批量验证。
type barReporter struct {
	out     io.Writer
	bar     *progressbar.ProgressBar
	working int
}

func newBarReporter(out io.Writer, total int) *barReporter {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("checking"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
	)
	return &barReporter{out: out, bar: bar}
}

func (r *barReporter) Report(o model.Outcome) {
	if o.Reachable {
		r.working++
		r.bar.Describe(fmt.Sprintf("checking (%d working)", r.working))
	}
	_ = r.bar.Add(1)
}

func (r *barReporter) Finish() {
	_ = r.bar.Finish()
	fmt.Fprintln(r.out)
}
