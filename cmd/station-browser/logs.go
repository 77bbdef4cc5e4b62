package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rivo/tview"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogPanel shows recent log entries in a scrolling text view.
type LogPanel struct {
	textView *tview.TextView

	// maxLines is the number of entries kept in the view
	maxLines int

	mu    sync.Mutex
	lines []string
}

// NewLogPanel creates a log panel keeping the last maxLines entries.
func NewLogPanel(maxLines int) *LogPanel {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(maxLines)
	textView.SetBorder(true).SetTitle(" Logs ")

	return &LogPanel{
		textView: textView,
		maxLines: maxLines,
		lines:    make([]string, 0, maxLines),
	}
}

// View returns the tview component.
func (lp *LogPanel) View() *tview.TextView {
	return lp.textView
}

// Lines returns a copy of the retained entries, oldest first.
func (lp *LogPanel) Lines() []string {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	out := make([]string, len(lp.lines))
	copy(out, lp.lines)
	return out
}

// Tee returns a logger that writes to base and to the panel. The panel shows
// info and above.
func (lp *LogPanel) Tee(base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	core := &panelCore{
		LevelEnabler: zapcore.InfoLevel,
		panel:        lp,
		enc:          zapcore.NewConsoleEncoder(panelEncoderConfig()),
	}
	return zap.New(zapcore.NewTee(base.Core(), core))
}

func (lp *LogPanel) add(level zapcore.Level, line string) {
	color := "white"
	switch {
	case level >= zapcore.ErrorLevel:
		color = "red"
	case level == zapcore.WarnLevel:
		color = "yellow"
	case level == zapcore.DebugLevel:
		color = "gray"
	}
	line = fmt.Sprintf("[%s]%s[-]", color, tview.Escape(strings.TrimRight(line, "\n")))

	lp.mu.Lock()
	lp.lines = append(lp.lines, line)
	if len(lp.lines) > lp.maxLines {
		lp.lines = lp.lines[len(lp.lines)-lp.maxLines:]
	}
	lp.mu.Unlock()

	fmt.Fprintln(lp.textView, line)
}

func panelEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = "T"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cfg.CallerKey = ""
	cfg.NameKey = ""
	cfg.StacktraceKey = ""
	return cfg
}

// panelCore is a zapcore.Core that renders entries into a LogPanel.
type panelCore struct {
	zapcore.LevelEnabler
	panel  *LogPanel
	enc    zapcore.Encoder
	fields []zapcore.Field
}

func (c *panelCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *panelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *panelCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	all := append(append([]zapcore.Field(nil), c.fields...), fields...)
	buf, err := c.enc.EncodeEntry(ent, all)
	if err != nil {
		return err
	}
	defer buf.Free()
	c.panel.add(ent.Level, buf.String())
	return nil
}

func (c *panelCore) Sync() error {
	return nil
}
