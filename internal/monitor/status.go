package monitor

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/Hikki8man/taskmaster/internal/process"
	"github.com/Hikki8man/taskmaster/internal/task"
)

// statusColor maps a Process status to the colour supervisorctl-style
// tools traditionally use for it.
func statusColor(s process.Status) *color.Color {
	switch s {
	case process.Running:
		return color.New(color.FgGreen, color.Bold)
	case process.Fatal:
		return color.New(color.FgRed, color.Bold)
	case process.Starting, process.Stopping, process.Restarting:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgWhite)
	}
}

const (
	nameWidth   = 24
	statusWidth = 12
)

// WriteStatus formats one line per Process across tasks (or only those
// named in filter, in "task" or "task:id" form).
func WriteStatus(w io.Writer, tasks map[string]*task.Task, filter []string, now time.Time) {
	if len(filter) == 0 {
		for _, name := range sortedNames(tasks) {
			writeTaskStatus(w, tasks[name], "*", now)
		}
		return
	}
	for _, f := range filter {
		taskName, id, hasID := strings.Cut(f, ":")
		t, ok := tasks[taskName]
		if !ok {
			fmt.Fprintf(w, "%s: no such task\n", taskName)
			continue
		}
		selector := "*"
		if hasID {
			selector = id
		}
		writeTaskStatus(w, t, selector, now)
	}
}

func writeTaskStatus(w io.Writer, t *task.Task, selector string, now time.Time) {
	procs := t.Select(selector)
	if len(procs) == 0 {
		fmt.Fprintf(w, "%s: no matching replica\n", t.Name)
		return
	}
	multi := len(t.Processes) > 1
	for _, p := range procs {
		writeLine(w, t.Name, p, multi, now)
	}
}

func writeLine(w io.Writer, taskName string, p *process.Process, multi bool, now time.Time) {
	label := taskName
	if multi {
		label = fmt.Sprintf("%s:%d", taskName, p.ID())
	}

	status := p.Status()
	// Pad the plain text to a fixed width first, then colour it: ANSI
	// escape bytes would otherwise count towards %-*s's width and break
	// alignment.
	paddedStatus := fmt.Sprintf("%-*s", statusWidth, status.String())
	statusText := statusColor(status).Sprint(paddedStatus)

	detail := "-"
	if status == process.Fatal {
		if err := p.LastError(); err != nil {
			detail = err.Error()
		}
	} else if pid := p.Pid(); pid != 0 {
		detail = fmt.Sprintf("pid %d", pid)
	}

	uptimeText := "-"
	if up, ok := p.Uptime(); ok {
		uptimeText = formatDuration(now.Sub(up))
	}

	fmt.Fprintf(w, "%-*s\t-\t%s\t-\t%s\t-\t%s\n", nameWidth, label, statusText, detail, uptimeText)
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func sortedNames(tasks map[string]*task.Task) []string {
	names := make([]string, 0, len(tasks))
	for name := range tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
