// Package monitor implements the supervisor's control plane: a
// single-threaded event loop multiplexing timer-driven task ticks,
// operator commands, configuration reloads and shutdown.
package monitor

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hikki8man/taskmaster/internal/config"
	"github.com/Hikki8man/taskmaster/internal/logsink"
	"github.com/Hikki8man/taskmaster/internal/operator"
	"github.com/Hikki8man/taskmaster/internal/signalconveyor"
	"github.com/Hikki8man/taskmaster/internal/task"
)

// TickInterval bounds the busy-cooperative loop's CPU usage between
// iterations.
const TickInterval = 25 * time.Millisecond

// Monitor owns the task table, the operator receiver, the reload
// flag and the shutdown flag — every piece of state the control
// plane needs.
type Monitor struct {
	ConfigPath string
	Tasks      map[string]*task.Task
	Commands   operator.Chan
	Reload     *signalconveyor.Flag
	Sink       *logsink.Sink
	Out        io.Writer
	Log        zerolog.Logger

	shutdown bool
}

// New constructs an empty Monitor. Call LoadInitial before Run.
func New(configPath string, commands operator.Chan, sink *logsink.Sink, log zerolog.Logger) *Monitor {
	return &Monitor{
		ConfigPath: configPath,
		Tasks:      make(map[string]*task.Task),
		Commands:   commands,
		Reload:     signalconveyor.New(),
		Sink:       sink,
		Out:        os.Stdout,
		Log:        log,
	}
}

// LoadInitial parses the config file and constructs the initial task
// table. A failure here is a startup configuration error and must
// terminate the daemon with exit code 1.
func (m *Monitor) LoadInitial() error {
	set, err := config.Load(m.ConfigPath)
	if err != nil {
		return err
	}
	for name, cfg := range set {
		m.Tasks[name] = task.New(name, cfg, m.Sink)
	}
	return nil
}

// anyAlive reports whether any task still has a live process, which
// gates both shutdown-drain and the daemon's final exit.
func (m *Monitor) anyAlive() bool {
	for _, t := range m.Tasks {
		if t.AnyAlive() {
			return true
		}
	}
	return false
}

// Run executes the control loop until a clean shutdown or an operator
// KILL, returning the process exit code.
func (m *Monitor) Run() int {
	for {
		now := time.Now()
		for name, t := range m.Tasks {
			for _, err := range t.TryWait(now) {
				m.Log.Warn().Err(err).Str("task", name).Msg("reap error")
			}
		}

		if m.shutdown && !m.anyAlive() {
			return 0
		}

		select {
		case cmd := <-m.Commands:
			if exit, code := m.dispatch(cmd); exit {
				return code
			}
		default:
		}

		if m.Reload.TakeRequested() {
			m.reload()
		}

		time.Sleep(TickInterval)
	}
}
