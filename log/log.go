// Package log provides leveled, keyed structured logging for fablechain
// processes. It mirrors the shape of go-probeum's own log package: a
// handful of package-level functions (Trace/Debug/Info/Warn/Error/Crit)
// taking a message followed by alternating key/value pairs, rendered in
// color when attached to a terminal and plain otherwise.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Lvl is a log severity level.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "CRIT"
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	case LvlTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

var levelColor = map[Lvl]*color.Color{
	LvlCrit:  color.New(color.FgMagenta, color.Bold),
	LvlError: color.New(color.FgRed),
	LvlWarn:  color.New(color.FgYellow),
	LvlInfo:  color.New(color.FgGreen),
	LvlDebug: color.New(color.FgCyan),
	LvlTrace: color.New(color.FgWhite),
}

var root = &logger{
	out:      colorable.NewColorableStdout(),
	minLevel: LvlInfo,
	useColor: isatty.IsTerminal(os.Stdout.Fd()),
	ctx:      nil,
}

type logger struct {
	mu       sync.Mutex
	out      io.Writer
	minLevel Lvl
	useColor bool
	ctx      []interface{} // alternating key/value pairs bound to every record
}

// SetLevel sets the minimum level the root logger emits.
func SetLevel(l Lvl) {
	root.mu.Lock()
	defer root.mu.Unlock()
	root.minLevel = l
}

// SetOutput redirects the root logger's writer, disabling color detection
// (used by tests to capture output deterministically).
func SetOutput(w io.Writer) {
	root.mu.Lock()
	defer root.mu.Unlock()
	root.out = w
	root.useColor = false
}

// New returns a logger with ctx permanently bound to every record it emits,
// e.g. log.New("node", addr).Info("listening").
func New(ctx ...interface{}) Logger {
	return &boundLogger{ctx: ctx}
}

// Logger is the interface returned by New.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
}

type boundLogger struct {
	ctx []interface{}
}

func (b *boundLogger) Trace(msg string, ctx ...interface{}) { write(LvlTrace, msg, append(append([]interface{}{}, b.ctx...), ctx...)) }
func (b *boundLogger) Debug(msg string, ctx ...interface{}) { write(LvlDebug, msg, append(append([]interface{}{}, b.ctx...), ctx...)) }
func (b *boundLogger) Info(msg string, ctx ...interface{})  { write(LvlInfo, msg, append(append([]interface{}{}, b.ctx...), ctx...)) }
func (b *boundLogger) Warn(msg string, ctx ...interface{})  { write(LvlWarn, msg, append(append([]interface{}{}, b.ctx...), ctx...)) }
func (b *boundLogger) Error(msg string, ctx ...interface{}) { write(LvlError, msg, append(append([]interface{}{}, b.ctx...), ctx...)) }
func (b *boundLogger) Crit(msg string, ctx ...interface{})  { write(LvlCrit, msg, append(append([]interface{}{}, b.ctx...), ctx...)) }

// Package-level convenience functions, used for one-off logging without
// binding context.
func Trace(msg string, ctx ...interface{}) { write(LvlTrace, msg, ctx) }
func Debug(msg string, ctx ...interface{}) { write(LvlDebug, msg, ctx) }
func Info(msg string, ctx ...interface{})  { write(LvlInfo, msg, ctx) }
func Warn(msg string, ctx ...interface{})  { write(LvlWarn, msg, ctx) }
func Error(msg string, ctx ...interface{}) { write(LvlError, msg, ctx) }
func Crit(msg string, ctx ...interface{})  { write(LvlCrit, msg, ctx) }

func write(lvl Lvl, msg string, ctx []interface{}) {
	root.mu.Lock()
	defer root.mu.Unlock()
	if lvl > root.minLevel {
		return
	}
	var b strings.Builder
	ts := time.Now().Format("2006-01-02T15:04:05.000")
	levelStr := lvl.String()
	if root.useColor {
		if c, ok := levelColor[lvl]; ok {
			levelStr = c.Sprint(lvl.String())
		}
	}
	fmt.Fprintf(&b, "%s [%s] %s", ts, levelStr, msg)
	for i := 0; i+1 < len(ctx); i += 2 {
		fmt.Fprintf(&b, " %v=%v", ctx[i], ctx[i+1])
	}
	if lvl <= LvlError {
		// attach the immediate caller frame for error-and-above records,
		// matching the teacher's practice of stack-annotated error logs.
		if frames := stack.Trace().TrimBelow(stack.Caller(2)).TrimRuntime(); len(frames) > 0 {
			fmt.Fprintf(&b, " caller=%v", frames[0])
		}
	}
	b.WriteByte('\n')
	io.WriteString(root.out, b.String())
}
