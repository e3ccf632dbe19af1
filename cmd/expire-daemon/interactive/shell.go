// Package interactive provides the interactive command-line interface
// for the expire daemon.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/expire-adapter/expire-go/pkg/expire"
	"github.com/expire-adapter/expire-go/pkg/model"
	"github.com/expire-adapter/expire-go/pkg/store"
)

// Backend is a store the shell can edit.
type Backend interface {
	store.Store
	store.Admin
}

// Shell handles interactive mode for expire-daemon.
type Shell struct {
	backend   Backend
	namespace string
	engine    *expire.Engine
	rl        *readline.Instance
	out       io.Writer
}

// New creates a new interactive shell on top of backend.
func New(backend Backend, namespace string) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "expire> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Shell{
		backend:   backend,
		namespace: namespace,
		rl:        rl,
		out:       rl.Stdout(),
	}, nil
}

// newShell creates a shell without a terminal.
func newShell(backend Backend, namespace string, out io.Writer) *Shell {
	return &Shell{
		backend:   backend,
		namespace: namespace,
		out:       out,
	}
}

// SetEngine attaches the engine whose status the shell reports.
func (s *Shell) SetEngine(e *expire.Engine) {
	s.engine = e
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (s *Shell) Stderr() io.Writer {
	return s.rl.Stderr()
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if quit := s.Execute(ctx, line); quit {
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the shell should exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "watch", "w":
		s.cmdWatch(ctx, args)
	case "unwatch", "u":
		s.cmdUnwatch(ctx, args)
	case "set":
		s.cmdSet(ctx, args)
	case "get", "g":
		s.cmdGet(ctx, args)
	case "delete", "del":
		s.cmdDelete(ctx, args)
	case "list", "ls":
		s.cmdList(ctx)
	case "status", "st":
		s.cmdStatus()
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Expire Commands:
  Objects:
    watch <id> <type> <interval> <state> [ack]  - Create or reconfigure a watched object
    unwatch <id>                                - Disable watching for an object
    delete <id>                                 - Delete an object
    list                                        - List objects and their settings

  States:
    set <id> <value>   - Write a fresh value (ack=true)
    get <id>           - Show the current value

  Engine:
    status             - Show watched keys and pending timers

  Other:
    help               - Show this help
    quit               - Exit`)
}

func (s *Shell) cmdWatch(ctx context.Context, args []string) {
	if len(args) < 4 {
		fmt.Fprintln(s.out, "Usage: watch <id> <type> <interval> <state> [ack]")
		fmt.Fprintln(s.out, "  type: boolean, number, string")
		fmt.Fprintln(s.out, "  interval: e.g. 30s, 5m, 1h, 1d")
		return
	}

	id := args[0]
	settings := map[string]any{
		"enabled":  true,
		"interval": args[2],
		"state":    parseLiteral(args[3]),
		"ack":      len(args) > 4 && isTruthy(args[4]),
	}

	obj, err := s.backend.GetObject(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return
		}
		obj = &model.Object{ID: id, Type: model.ObjectTypeState}
	}
	obj.Common.Type = args[1]
	if obj.Common.Custom == nil {
		obj.Common.Custom = make(map[string]map[string]any)
	}
	obj.Common.Custom[s.namespace] = settings

	if err := s.backend.SetObject(ctx, obj); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.backend.Flush()

	if s.engine != nil {
		if _, ok := s.engine.Lookup(id); !ok {
			fmt.Fprintf(s.out, "%s was not accepted (see log for the reason)\n", id)
			return
		}
	}
	fmt.Fprintf(s.out, "Watching %s: expires to %v after %s\n", id, settings["state"], args[2])
}

func (s *Shell) cmdUnwatch(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: unwatch <id>")
		return
	}

	obj, err := s.backend.GetObject(ctx, args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	block := obj.CustomFor(s.namespace)
	if block == nil {
		fmt.Fprintf(s.out, "%s has no %s settings\n", args[0], s.namespace)
		return
	}
	block["enabled"] = false

	if err := s.backend.SetObject(ctx, obj); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.backend.Flush()
	fmt.Fprintf(s.out, "Stopped watching %s\n", args[0])
}

func (s *Shell) cmdSet(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: set <id> <value>")
		return
	}

	val := parseLiteral(strings.Join(args[1:], " "))
	if err := s.backend.SetState(ctx, args[0], val, true); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.backend.Flush()
	fmt.Fprintf(s.out, "%s = %v\n", args[0], val)
}

func (s *Shell) cmdGet(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: get <id>")
		return
	}

	st, err := s.backend.GetState(ctx, args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "%s = %v\n", args[0], st.Val)
	fmt.Fprintf(s.out, "  ack:  %t\n", st.Ack)
	fmt.Fprintf(s.out, "  ts:   %s (%s ago)\n", st.Time().Format(time.RFC3339Nano), time.Since(st.Time()).Round(time.Millisecond))
	fmt.Fprintf(s.out, "  lc:   %s\n", time.UnixMilli(st.LC).Format(time.RFC3339Nano))
	if st.From != "" {
		fmt.Fprintf(s.out, "  from: %s\n", st.From)
	}
}

func (s *Shell) cmdDelete(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: delete <id>")
		return
	}

	if err := s.backend.DeleteObject(ctx, args[0]); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.backend.Flush()
	fmt.Fprintf(s.out, "Deleted %s\n", args[0])
}

func (s *Shell) cmdList(ctx context.Context) {
	objs, err := s.backend.Objects(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if len(objs) == 0 {
		fmt.Fprintln(s.out, "No objects")
		return
	}

	for _, obj := range objs {
		block := obj.CustomFor(s.namespace)
		if block == nil {
			fmt.Fprintf(s.out, "  %-30s %-8s -\n", obj.ID, obj.Common.Type)
			continue
		}
		enabled, _ := block["enabled"].(bool)
		fmt.Fprintf(s.out, "  %-30s %-8s enabled=%t interval=%v state=%v ack=%v\n",
			obj.ID, obj.Common.Type, enabled, block["interval"], block["state"], block["ack"])
	}
}

func (s *Shell) cmdStatus() {
	if s.engine == nil {
		fmt.Fprintln(s.out, "Engine not running")
		return
	}

	watched := s.engine.Watched()
	fmt.Fprintf(s.out, "Namespace: %s\n", s.engine.Namespace())
	fmt.Fprintf(s.out, "Session:   %s\n", s.engine.SessionID())
	fmt.Fprintf(s.out, "Watched:   %d (timers pending: %d)\n", len(watched), s.engine.PendingTimers())

	for _, ks := range watched {
		line := fmt.Sprintf("  %-30s %-9s interval=%s expired=%s", ks.ID, ks.State, ks.Config.Interval, ks.Config.ExpiredValue)
		if ks.TimerPending {
			line += fmt.Sprintf(" fires in %s", ks.Remaining.Round(time.Millisecond))
		}
		fmt.Fprintln(s.out, line)
	}
}

// parseLiteral interprets command-line input as a bool, a number, or text.
func parseLiteral(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}

func isTruthy(s string) bool {
	switch strings.ToLower(s) {
	case "ack", "true", "1", "yes":
		return true
	}
	return false
}
