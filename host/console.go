package host

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	"github.com/chazu/superbasic/vm"
)

var logger = commonlog.GetLogger("superbasic.host")

// InputSink receives lines typed at the console before the engine is told
// that input arrived.
type InputSink interface {
	ProvideInput(text string)
}

// Console runs an engine against a terminal. Program output goes through
// the libraries; the console itself only writes prompts and debugger
// snapshots to Out.
type Console struct {
	Worker *Worker
	Input  InputSink
	In     io.Reader
	Out    io.Writer

	lines       *bufio.Scanner
	interactive bool
}

// NewConsole creates a console reading from in and writing to out.
func NewConsole(w *Worker, input InputSink, in io.Reader, out io.Writer) *Console {
	c := &Console{Worker: w, Input: input, In: in, Out: out, lines: bufio.NewScanner(in)}
	if f, ok := in.(*os.File); ok {
		c.interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return c
}

// burst is what one Execute call left behind.
type burst struct {
	state    vm.ExecutionState
	idle     bool
	snapshot vm.Snapshot
	err      error
}

// Run drives the attached engine until it terminates, ctx is done, or a
// library fails.
func (c *Console) Run(ctx context.Context) error {
	for {
		v, err := c.Worker.Do(func(e *vm.Engine) interface{} {
			b := burst{err: e.Execute(ctx)}
			b.state = e.State()
			b.idle = e.IsIdle()
			if b.state == vm.StatePaused {
				b.snapshot = e.GetSnapshot()
			}
			return b
		})
		if err != nil {
			return err
		}
		b := v.(burst)
		if b.err != nil {
			return b.err
		}

		switch b.state {
		case vm.StateTerminated:
			return nil

		case vm.StatePaused:
			if err := c.debugPrompt(b.snapshot); err != nil {
				return err
			}

		case vm.StateBlockedOnStringInput, vm.StateBlockedOnNumberInput:
			if err := c.readInput(b.state); err != nil {
				return err
			}

		case vm.StateRunning:
			if !b.idle {
				continue
			}
			logger.Debugf("engine idle, waiting for events")
			select {
			case <-c.Worker.Posted():
			case <-ctx.Done():
				c.terminate()
				return ctx.Err()
			}
		}
	}
}

func (c *Console) readLine() (string, bool) {
	if !c.lines.Scan() {
		return "", false
	}
	return c.lines.Text(), true
}

func (c *Console) readInput(state vm.ExecutionState) error {
	if c.interactive {
		if state == vm.StateBlockedOnNumberInput {
			fmt.Fprint(c.Out, "# ")
		} else {
			fmt.Fprint(c.Out, "> ")
		}
	}
	line, ok := c.readLine()
	if !ok {
		logger.Warningf("input closed while the program was waiting for it")
		c.terminate()
		return c.lines.Err()
	}
	_, err := c.Worker.Do(func(e *vm.Engine) interface{} {
		c.Input.ProvideInput(line)
		e.InputReceived()
		return nil
	})
	return err
}

// debugPrompt prints the paused engine and waits for a command: an empty
// line or "n" steps to the next line, "c" continues to the next breakpoint
// and "q" stops the program.
func (c *Console) debugPrompt(s vm.Snapshot) error {
	fmt.Fprint(c.Out, s.String())
	fmt.Fprint(c.Out, "(n)ext, (c)ontinue, (q)uit: ")
	line, ok := c.readLine()
	if !ok {
		c.terminate()
		return c.lines.Err()
	}
	cmd := strings.ToLower(strings.TrimSpace(line))
	_, err := c.Worker.Do(func(e *vm.Engine) interface{} {
		switch cmd {
		case "q", "quit":
			e.Terminate()
		case "c", "continue":
			e.Continue(false)
		default:
			e.Continue(true)
		}
		return nil
	})
	return err
}

func (c *Console) terminate() {
	if _, err := c.Worker.Do(func(e *vm.Engine) interface{} {
		e.Terminate()
		return nil
	}); err != nil {
		logger.Errorf("terminate: %v", err)
	}
}
