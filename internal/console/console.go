// Package console renders status lines, tables, and progress indicators.
//
// Ops code talks to the Console interface only; Terminal is the pterm-backed
// implementation used by the CLI and Recorder captures output for tests.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
)

// Console is the presentation surface used by ops.
type Console interface {
	// Print writes a plain line to standard output.
	Print(format string, a ...any)
	Info(format string, a ...any)
	Success(format string, a ...any)
	Warn(format string, a ...any)
	Error(format string, a ...any)
	// Table renders rows under a header row.
	Table(header []string, rows [][]string) error
	// Spinner opens an indeterminate indicator.
	Spinner(text string) Indicator
	// Progress opens a determinate indicator over total steps.
	Progress(total int, text string) Indicator
}

// Indicator is an open progress indicator. Succeed and Fail close it; only
// the first close has any effect.
type Indicator interface {
	Update(text string)
	Increment(text string)
	Succeed(text string)
	Fail(text string)
}

// Options configure a Terminal.
type Options struct {
	Out     io.Writer
	Err     io.Writer
	NoColor bool
	// Quiet suppresses spinners and bars; closing messages are still printed.
	Quiet bool
}

// Terminal is a Console writing to a terminal through pterm.
type Terminal struct {
	out   io.Writer
	err   io.Writer
	quiet bool
}

// NewTerminal creates a Terminal.
func NewTerminal(opts Options) *Terminal {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.NoColor {
		pterm.DisableColor()
	}
	return &Terminal{out: opts.Out, err: opts.Err, quiet: opts.Quiet}
}

func (t *Terminal) Print(format string, a ...any) {
	fmt.Fprintf(t.out, format+"\n", a...)
}

func (t *Terminal) Info(format string, a ...any) {
	pterm.Info.WithWriter(t.err).Printfln(format, a...)
}

func (t *Terminal) Success(format string, a ...any) {
	pterm.Success.WithWriter(t.err).Printfln(format, a...)
}

func (t *Terminal) Warn(format string, a ...any) {
	pterm.Warning.WithWriter(t.err).Printfln(format, a...)
}

func (t *Terminal) Error(format string, a ...any) {
	pterm.Error.WithWriter(t.err).Printfln(format, a...)
}

func (t *Terminal) Table(header []string, rows [][]string) error {
	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, header)
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithWriter(t.out).WithData(data).Render()
}

func (t *Terminal) Spinner(text string) Indicator {
	if t.quiet {
		return &lineIndicator{term: t}
	}
	sp, err := pterm.DefaultSpinner.WithWriter(t.err).WithRemoveWhenDone(false).Start(text)
	if err != nil {
		return &lineIndicator{term: t}
	}
	return &spinner{sp: sp}
}

func (t *Terminal) Progress(total int, text string) Indicator {
	if t.quiet || total <= 0 {
		return &lineIndicator{term: t}
	}
	pb, err := pterm.DefaultProgressbar.WithTotal(total).WithTitle(text).WithWriter(t.err).Start()
	if err != nil {
		return &lineIndicator{term: t}
	}
	return &bar{term: t, pb: pb}
}

type spinner struct {
	sp     *pterm.SpinnerPrinter
	closed bool
}

func (s *spinner) Update(text string) {
	if !s.closed {
		s.sp.UpdateText(text)
	}
}

func (s *spinner) Increment(text string) { s.Update(text) }

func (s *spinner) Succeed(text string) {
	if s.closed {
		return
	}
	s.closed = true
	s.sp.Success(text)
}

func (s *spinner) Fail(text string) {
	if s.closed {
		return
	}
	s.closed = true
	s.sp.Fail(text)
}

type bar struct {
	term   *Terminal
	pb     *pterm.ProgressbarPrinter
	closed bool
}

func (b *bar) Update(text string) {
	if !b.closed {
		b.pb.UpdateTitle(text)
	}
}

func (b *bar) Increment(text string) {
	if b.closed {
		return
	}
	if text != "" {
		b.pb.UpdateTitle(text)
	}
	b.pb.Increment()
}

func (b *bar) Succeed(text string) {
	if b.closed {
		return
	}
	b.closed = true
	_, _ = b.pb.Stop()
	b.term.Success("%s", text)
}

func (b *bar) Fail(text string) {
	if b.closed {
		return
	}
	b.closed = true
	_, _ = b.pb.Stop()
	b.term.Error("%s", text)
}

// lineIndicator prints only the closing message.
type lineIndicator struct {
	term   *Terminal
	closed bool
}

func (l *lineIndicator) Update(string)    {}
func (l *lineIndicator) Increment(string) {}

func (l *lineIndicator) Succeed(text string) {
	if l.closed {
		return
	}
	l.closed = true
	l.term.Success("%s", text)
}

func (l *lineIndicator) Fail(text string) {
	if l.closed {
		return
	}
	l.closed = true
	l.term.Error("%s", text)
}
