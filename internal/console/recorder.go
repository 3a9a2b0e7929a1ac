package console

import (
	"fmt"
	"strings"
)

// Line is one recorded console line.
type Line struct {
	Level string // print, info, success, warn, error
	Text  string
}

// IndicatorRecord captures the life of one indicator.
type IndicatorRecord struct {
	Determinate bool
	Total       int
	Text        string
	Steps       int
	Closes      int
	Succeeded   bool
	Final       string
}

// Recorder is a Console that keeps everything in memory.
type Recorder struct {
	Lines      []Line
	Tables     [][][]string
	Indicators []*IndicatorRecord
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(level, format string, a ...any) {
	r.Lines = append(r.Lines, Line{Level: level, Text: fmt.Sprintf(format, a...)})
}

func (r *Recorder) Print(format string, a ...any)   { r.add("print", format, a...) }
func (r *Recorder) Info(format string, a ...any)    { r.add("info", format, a...) }
func (r *Recorder) Success(format string, a ...any) { r.add("success", format, a...) }
func (r *Recorder) Warn(format string, a ...any)    { r.add("warn", format, a...) }
func (r *Recorder) Error(format string, a ...any)   { r.add("error", format, a...) }

func (r *Recorder) Table(header []string, rows [][]string) error {
	t := [][]string{header}
	t = append(t, rows...)
	r.Tables = append(r.Tables, t)
	return nil
}

func (r *Recorder) Spinner(text string) Indicator {
	rec := &IndicatorRecord{Text: text}
	r.Indicators = append(r.Indicators, rec)
	return &recordedIndicator{rec: rec}
}

func (r *Recorder) Progress(total int, text string) Indicator {
	rec := &IndicatorRecord{Determinate: true, Total: total, Text: text}
	r.Indicators = append(r.Indicators, rec)
	return &recordedIndicator{rec: rec}
}

// Texts returns the recorded lines of one level.
func (r *Recorder) Texts(level string) []string {
	var out []string
	for _, l := range r.Lines {
		if l.Level == level {
			out = append(out, l.Text)
		}
	}
	return out
}

// Contains reports whether any line of the level contains substr.
func (r *Recorder) Contains(level, substr string) bool {
	for _, t := range r.Texts(level) {
		if strings.Contains(t, substr) {
			return true
		}
	}
	return false
}

type recordedIndicator struct {
	rec *IndicatorRecord
}

func (i *recordedIndicator) Update(text string) {
	if i.rec.Closes == 0 {
		i.rec.Text = text
	}
}

func (i *recordedIndicator) Increment(text string) {
	if i.rec.Closes == 0 {
		i.rec.Steps++
		if text != "" {
			i.rec.Text = text
		}
	}
}

func (i *recordedIndicator) Succeed(text string) { i.close(true, text) }
func (i *recordedIndicator) Fail(text string)    { i.close(false, text) }

// close counts every call so tests can assert exactly one close.
func (i *recordedIndicator) close(ok bool, text string) {
	i.rec.Closes++
	if i.rec.Closes == 1 {
		i.rec.Succeeded = ok
		i.rec.Final = text
	}
}
