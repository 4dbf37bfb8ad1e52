// Package process implements the Process state machine: one
// supervised child, its retry accounting, its timers, and the
// transitions between Stopped, Starting, Running, Stopping, Restarting
// and Fatal.
package process

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/Hikki8man/taskmaster/internal/config"
	"github.com/Hikki8man/taskmaster/internal/logsink"
)

// Status is one of the six states a Process can occupy.
type Status int

const (
	Stopped Status = iota
	Starting
	Running
	Stopping
	Restarting
	Fatal
)

func (s Status) String() string {
	switch s {
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Restarting:
		return "Restarting"
	case Fatal:
		return "Fatal"
	default:
		return "Stopped"
	}
}

// HasChild reports whether status implies a live child, keeping the
// OS handle and the reported status coherent with each other.
func (s Status) HasChild() bool {
	switch s {
	case Starting, Running, Stopping, Restarting:
		return true
	default:
		return false
	}
}

// Process is one replica within a Task. It is created once per (task,
// id) and survives many child lifetimes; its spawn template (argv,
// cwd, env, stdio, umask) is embedded at construction so Process is
// self-contained and does not need a back-reference to its Task.
type Process struct {
	id       int
	taskName string
	cfg      config.TaskConfig
	sink     *logsink.Sink

	status   Status
	retries  int
	timer    time.Time
	uptime   time.Time
	lastErr  error

	cmd        *exec.Cmd
	pid        int
	stdoutFile *os.File
	stderrFile *os.File
}

// New constructs a Process in the Stopped state. cfg must already have
// WithDefaults applied.
func New(taskName string, id int, cfg config.TaskConfig, sink *logsink.Sink) *Process {
	return &Process{
		id:       id,
		taskName: taskName,
		cfg:      cfg,
		sink:     sink,
		status:   Stopped,
		timer:    time.Now(),
	}
}

func (p *Process) ID() int               { return p.id }
func (p *Process) TaskName() string      { return p.taskName }
func (p *Process) Status() Status        { return p.status }
func (p *Process) Retries() int          { return p.retries }
func (p *Process) Pid() int              { return p.pid }
func (p *Process) LastError() error      { return p.lastErr }
func (p *Process) Config() config.TaskConfig { return p.cfg }

// Uptime returns the instant the process most recently entered Running
// and true, or the zero time and false if not currently Running.
func (p *Process) Uptime() (time.Time, bool) {
	if p.status != Running {
		return time.Time{}, false
	}
	return p.uptime, true
}

func ref(p *Process) string { return fmt.Sprintf("%s:%d", p.taskName, p.id) }

// ResetRetries zeroes the spawn-attempt counter. Task.Start calls this
// before Start on an operator-initiated start.
func (p *Process) ResetRetries() {
	p.retries = 0
}

// Start implements the `start()` event. It is a no-op outside Stopped
// and Fatal: a start issued while a Process is Starting or Running
// has no effect, and returns a diagnostic saying so instead of nil.
func (p *Process) Start() error {
	switch p.status {
	case Fatal:
		p.retries = 0
	case Stopped:
		// retries carries over from the previous run: an
		// operator-initiated start does not reset retries at the
		// Process layer; Task.Start resets it explicitly first.
	default:
		return fmt.Errorf("start %s: already %s, no-op", ref(p), strings.ToLower(p.status.String()))
	}

	p.retries++
	p.timer = time.Now()
	p.status = Starting
	p.lastErr = nil

	handle, pid, outF, errF, err := spawn(p.cfg)
	if err != nil {
		p.lastErr = err
		p.status = Fatal
		return err
	}

	p.cmd = handle
	p.pid = pid
	p.stdoutFile = outF
	p.stderrFile = errF
	if p.sink != nil {
		p.sink.Spawned(p.taskName, p.id, p.pid)
	}
	return nil
}

// Stop implements the graceful `stop()` event. It is a no-op outside
// Running: a stop while Stopped has no effect.
func (p *Process) Stop() error {
	if p.status != Running {
		return nil
	}
	if err := p.signalGroup(p.cfg.StopSignal); err != nil {
		return fmt.Errorf("stop %s: %w", ref(p), err)
	}
	p.status = Stopping
	p.timer = time.Now()
	p.uptime = time.Time{}
	if p.sink != nil {
		p.sink.WaitingStop(p.taskName, p.id)
	}
	return nil
}

// Restart implements the `restart()` event, generalised from the
// Stopping case to every state a Process can be in. A Process that is
// still Starting is signalled and moved to Restarting exactly like a
// Running one, rather than dropping the restart on the floor.
func (p *Process) Restart() error {
	switch p.status {
	case Running, Starting:
		if err := p.signalGroup(p.cfg.StopSignal); err != nil {
			return fmt.Errorf("restart %s: %w", ref(p), err)
		}
		p.uptime = time.Time{}
		p.status = Restarting
		p.timer = time.Now()
		if p.sink != nil {
			p.sink.WaitingStop(p.taskName, p.id)
		}
	case Stopping:
		p.status = Restarting
	case Stopped, Fatal:
		return p.Start()
	default:
		// Restarting: no-op.
	}
	return nil
}

// Kill is the hard, unconditional terminate: force-terminate and clear
// the handle regardless of current state.
func (p *Process) Kill() {
	if !p.status.HasChild() {
		return
	}
	p.forceKillAndReap()
	p.status = Stopped
}

// Tick applies the time-based transitions for states whose child has
// NOT yet terminated (Task.TryWait calls this when the non-blocking
// reap finds nothing).
func (p *Process) Tick(now time.Time) {
	switch p.status {
	case Starting:
		if now.Sub(p.timer) >= p.cfg.StartTime {
			p.status = Running
			p.retries = 0
			p.uptime = now
			if p.sink != nil {
				p.sink.Success(p.taskName, p.id)
			}
		}
	case Stopping:
		if now.Sub(p.timer) >= p.cfg.StopTime {
			p.forceKillAndReap()
			p.status = Stopped
		}
	case Restarting:
		if now.Sub(p.timer) >= p.cfg.StopTime {
			p.forceKillAndReap()
			p.status = Stopped
			_ = p.Start()
		}
	}
}

// Reap applies the reap transitions for a child that TryWait found
// already terminated.
func (p *Process) Reap(now time.Time, ws syscall.WaitStatus) {
	code, expected := p.interpretExit(ws)
	switch p.status {
	case Starting:
		p.clearHandle()
		if p.retries < p.cfg.StartRetries {
			p.status = Stopped
			_ = p.Start()
		} else {
			p.status = Fatal
			p.lastErr = fmt.Errorf("start retries (%d) exhausted", p.cfg.StartRetries)
		}
	case Running:
		p.logExit(ws, code, expected)
		p.clearHandle()
		switch p.cfg.Autorestart {
		case config.Always:
			_ = p.Start()
		case config.Unexpected:
			if expected {
				p.status = Stopped
			} else {
				_ = p.Start()
			}
		case config.Never:
			p.status = Stopped
		}
	case Stopping:
		p.clearHandle()
		p.status = Stopped
		if p.sink != nil {
			p.sink.Stopped(p.taskName, p.id, "by request")
		}
	case Restarting:
		p.clearHandle()
		p.status = Stopped
		_ = p.Start()
	}
}

// interpretExit reports the exit code (or 128+signal, shell-style) and
// whether it counts as "expected" under the task's exitcodes set.
// Signal death always counts as unexpected.
func (p *Process) interpretExit(ws syscall.WaitStatus) (code int, expected bool) {
	if ws.Signaled() {
		return 128 + int(ws.Signal()), false
	}
	code = ws.ExitStatus()
	return code, p.cfg.ExitCodeExpected(code)
}

func (p *Process) logExit(ws syscall.WaitStatus, code int, expected bool) {
	if p.sink == nil {
		return
	}
	if ws.Signaled() {
		p.sink.ExitedSignal(p.taskName, p.id, config.SignalName(ws.Signal()))
		return
	}
	p.sink.ExitedCode(p.taskName, p.id, code, expected)
}
