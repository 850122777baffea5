package orchestrator

import (
	"io"
	"log"
	"time"
)

// Observer receives run progress events. The console implementation prints
// human-readable lines; tests substitute a recorder.
type Observer interface {
	PhaseStarted(name string)
	PhaseFinished(res PhaseResult)
	Progress(line string)
}

// Console is the default Observer, writing one line per event.
type Console struct {
	l *log.Logger
}

// NewConsole creates a console observer writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{l: log.New(out, "", log.Ltime)}
}

func (c *Console) PhaseStarted(name string) {
	c.l.Printf("==> %s", name)
}

func (c *Console) PhaseFinished(res PhaseResult) {
	switch res.Status {
	case StatusFailed:
		c.l.Printf("<== %s failed after %s: %v", res.Name, res.Elapsed.Round(timeUnit(res.Elapsed)), res.Err)
	default:
		c.l.Printf("<== %s done (%s)", res.Name, res.Elapsed.Round(timeUnit(res.Elapsed)))
	}
}

func (c *Console) Progress(line string) {
	c.l.Print(line)
}

// Printf lets the console double as a wait-progress logger.
func (c *Console) Printf(format string, v ...any) {
	c.l.Printf(format, v...)
}

// timeUnit picks a rounding unit so sub-second phases don't print as "0s".
func timeUnit(d time.Duration) time.Duration {
	if d < time.Second {
		return time.Millisecond
	}
	return time.Second
}
