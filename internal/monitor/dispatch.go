package monitor

import (
	"fmt"
	"time"

	"github.com/Hikki8man/taskmaster/internal/operator"
)

// dispatch handles exactly one operator command. It returns (true,
// code) when the daemon should exit the Run loop immediately (KILL).
func (m *Monitor) dispatch(cmd operator.Command) (exit bool, code int) {
	if cmd.ParseError != "" {
		fmt.Fprintln(m.Out, cmd.ParseError)
		if cmd.Verb == operator.Unknown {
			return false, 0
		}
	}

	switch cmd.Verb {
	case operator.StatusVerb:
		filter := make([]string, 0, len(cmd.Targets))
		for _, t := range cmd.Targets {
			if t.Selector == "*" {
				filter = append(filter, t.Task)
			} else {
				filter = append(filter, t.Task+":"+t.Selector)
			}
		}
		WriteStatus(m.Out, m.Tasks, filter, time.Now())

	case operator.StartVerb:
		m.forEachTarget(cmd.Targets, func(tk taskLike, sel string) (int, []error) { return tk.Start(sel) })

	case operator.StopVerb:
		m.forEachTarget(cmd.Targets, func(tk taskLike, sel string) (int, []error) { return tk.Stop(sel) })

	case operator.RestartVerb:
		m.forEachTarget(cmd.Targets, func(tk taskLike, sel string) (int, []error) { return tk.Restart(sel) })

	case operator.UpdateVerb:
		m.reload()

	case operator.ShutdownVerb:
		m.shutdown = true
		for _, t := range m.Tasks {
			t.Stop("*")
		}

	case operator.KillVerb:
		for _, t := range m.Tasks {
			t.Kill()
		}
		return true, 0

	case operator.HelpVerb:
		fmt.Fprintln(m.Out, operator.HelpText)
	}
	return false, 0
}

// taskLike is the subset of *task.Task dispatch needs, named so
// forEachTarget reads as verb-agnostic plumbing.
type taskLike interface {
	Start(selector string) (int, []error)
	Stop(selector string) (int, []error)
	Restart(selector string) (int, []error)
}

func (m *Monitor) forEachTarget(targets []operator.Target, apply func(taskLike, string) (int, []error)) {
	for _, tgt := range targets {
		t, ok := m.Tasks[tgt.Task]
		if !ok {
			fmt.Fprintf(m.Out, "%s: no such task\n", tgt.Task)
			continue
		}
		matched, errs := apply(t, tgt.Selector)
		if matched == 0 {
			fmt.Fprintf(m.Out, "%s:%s: no matching replica\n", tgt.Task, tgt.Selector)
		}
		for _, err := range errs {
			fmt.Fprintf(m.Out, "%s: %v\n", tgt.Task, err)
		}
	}
}
