// Package terminal is the interactive operator console: it owns line
// editing, history and completion, and is a producer-only
// participant on the operator command channel — it never touches task
// state directly.
package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/Hikki8man/taskmaster/internal/operator"
)

// Terminal reads lines from an interactive prompt and turns each into
// an operator.Command pushed onto Commands.
type Terminal struct {
	rl       *readline.Instance
	Commands operator.Chan
}

// New builds a Terminal with Tab-completion over the verb set and
// over currently-known task names, and history persisted to
// historyPath (empty disables persistence).
func New(commands operator.Chan, historyPath string, taskNames func() []string) (*Terminal, error) {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("status", taskCompleter(taskNames)),
		readline.PcItem("start", taskCompleter(taskNames)),
		readline.PcItem("stop", taskCompleter(taskNames)),
		readline.PcItem("restart", taskCompleter(taskNames)),
		readline.PcItem("update"),
		readline.PcItem("shutdown"),
		readline.PcItem("kill"),
		readline.PcItem("help"),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "taskmaster> ",
		HistoryFile:     historyPath,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("terminal: %w", err)
	}
	return &Terminal{rl: rl, Commands: commands}, nil
}

func taskCompleter(taskNames func() []string) *readline.PrefixCompleter {
	return readline.PcItemDynamic(func(string) []string {
		if taskNames == nil {
			return nil
		}
		return taskNames()
	})
}

// Run reads lines until EOF or the reader is closed, parsing and
// forwarding each non-empty line. It is meant to run on its own
// goroutine; it owns no task state and only ever sends on Commands.
func (t *Terminal) Run() {
	defer t.rl.Close()
	for {
		line, err := t.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			t.Commands <- operator.Command{Verb: operator.ShutdownVerb, Raw: "shutdown"}
			return
		}
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		t.Commands <- operator.Parse(line)
	}
}

// Close releases the underlying terminal.
func (t *Terminal) Close() error {
	return t.rl.Close()
}
