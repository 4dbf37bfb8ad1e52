// Package task implements Task, a named group of identical replicas:
// it multiplexes operator verbs across a Process list selected by id,
// and aggregates reaping and tick across the whole replica set.
package task

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Hikki8man/taskmaster/internal/config"
	"github.com/Hikki8man/taskmaster/internal/logsink"
	"github.com/Hikki8man/taskmaster/internal/process"
)

// Task is a named group of config.TaskConfig.Numprocs identical
// Process replicas.
type Task struct {
	Name      string
	Config    config.TaskConfig
	Processes []*process.Process
}

// New constructs a Task's Process list and, if cfg.Autostart, spawns
// every replica immediately.
func New(name string, cfg config.TaskConfig, sink *logsink.Sink) *Task {
	t := &Task{Name: name, Config: cfg}
	t.Processes = make([]*process.Process, cfg.Numprocs)
	for i := 0; i < cfg.Numprocs; i++ {
		t.Processes[i] = process.New(name, i, cfg, sink)
	}
	if cfg.Autostart {
		for _, p := range t.Processes {
			_ = p.Start()
		}
	}
	return t
}

// Select returns the processes matching selector: "*" for every
// replica, or a decimal id for one. An out-of-range or malformed
// selector matches nothing.
func (t *Task) Select(selector string) []*process.Process {
	if selector == "" || selector == "*" {
		return t.Processes
	}
	id, err := strconv.Atoi(selector)
	if err != nil || id < 0 || id >= len(t.Processes) {
		return nil
	}
	return []*process.Process{t.Processes[id]}
}

// Start resets the retry counter of each targeted Process before
// starting it, giving an operator-initiated start a fresh retry budget.
func (t *Task) Start(selector string) (matched int, errs []error) {
	procs := t.Select(selector)
	for _, p := range procs {
		p.ResetRetries()
		if err := p.Start(); err != nil {
			errs = append(errs, err)
		}
	}
	return len(procs), errs
}

// Stop delegates to Process.Stop for every targeted replica without
// resetting anything.
func (t *Task) Stop(selector string) (matched int, errs []error) {
	procs := t.Select(selector)
	for _, p := range procs {
		if err := p.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return len(procs), errs
}

// Restart delegates to Process.Restart for every targeted replica.
func (t *Task) Restart(selector string) (matched int, errs []error) {
	procs := t.Select(selector)
	for _, p := range procs {
		if err := p.Restart(); err != nil {
			errs = append(errs, err)
		}
	}
	return len(procs), errs
}

// Kill hard-kills every replica. Internal-only: invoked by the
// operator KILL verb. Reload never calls it; it stops tasks gracefully.
func (t *Task) Kill() {
	for _, p := range t.Processes {
		p.Kill()
	}
}

// TryWait iterates every Process: if its OS child has already
// terminated, it applies the process's reap transition; otherwise it
// applies the tick transition. Reap errors (waitpid failures) are
// returned for the caller to log; the affected Process is left in its
// current state and retried on the next tick.
func (t *Task) TryWait(now time.Time) []error {
	var errs []error
	for _, p := range t.Processes {
		if !p.Status().HasChild() {
			p.Tick(now)
			continue
		}
		exited, ws, err := p.PollExit()
		if err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", t.Name, err))
			continue
		}
		if exited {
			p.Reap(now, ws)
		} else {
			p.Tick(now)
		}
	}
	return errs
}

// AnyAlive reports whether any replica still has a live child.
func (t *Task) AnyAlive() bool {
	for _, p := range t.Processes {
		if p.Status().HasChild() {
			return true
		}
	}
	return false
}

// WaitUntilStopped loops TryWait at the cooperative cadence until no
// Process in this Task is in {Starting, Running, Stopping, Restarting}.
// Used synchronously by reload; shutdown drains through the Monitor
// loop instead.
func (t *Task) WaitUntilStopped(tick time.Duration) {
	for t.AnyAlive() {
		t.TryWait(time.Now())
		time.Sleep(tick)
	}
}
