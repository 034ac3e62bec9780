// Package output provides the diagnostic stream shared by the packaging
// wrappers. It carries both structured log records and the raw lines echoed
// from wrapped packaging tools.
package output

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

// Color modes accepted by Options.Color
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Options configures a Diagnostics stream
type Options struct {
	// Level is a logrus level name (default "info")
	Level string

	// Echo controls whether raw tool output lines are written
	Echo bool

	// Color is one of ColorAuto, ColorAlways or ColorNever
	Color string
}

// Diagnostics serializes log records and raw tool lines onto one writer.
// Both drain workers of a running command write here concurrently.
type Diagnostics struct {
	mu   sync.Mutex
	w    io.Writer
	echo bool
	log  *log.Logger
}

// NewDiagnostics creates a diagnostic stream writing to w
func NewDiagnostics(w io.Writer, opts Options) *Diagnostics {
	d := &Diagnostics{w: w, echo: opts.Echo}

	logger := log.New()
	logger.SetOutput(d)
	logger.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		ForceColors:   useColor(w, opts.Color),
		DisableColors: !useColor(w, opts.Color),
	})
	if opts.Level != "" {
		if level, err := log.ParseLevel(opts.Level); err == nil {
			logger.SetLevel(level)
		} else {
			logger.Warnf("invalid log level %s, defaulting to info", opts.Level)
		}
	}
	d.log = logger
	return d
}

// Discard returns a diagnostic stream that drops everything
func Discard() *Diagnostics {
	return NewDiagnostics(io.Discard, Options{Level: "panic"})
}

// Write implements io.Writer. Each call is written atomically.
func (d *Diagnostics) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.w.Write(p)
}

// Line echoes one raw output line of a wrapped tool
func (d *Diagnostics) Line(line string) {
	if !d.echo {
		return
	}
	line = strings.TrimRight(line, "\r\n")
	d.Write([]byte(line + "\n"))
}

// Block echoes multi-line tool output, e.g. a captured stderr
func (d *Diagnostics) Block(text string) {
	text = strings.TrimRight(text, "\r\n")
	if text == "" {
		return
	}
	d.Write([]byte(text + "\n"))
}

// Logger returns the structured logger of this stream
func (d *Diagnostics) Logger() log.FieldLogger {
	return d.log
}

func useColor(w io.Writer, mode string) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
