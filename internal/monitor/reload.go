package monitor

import (
	"github.com/Hikki8man/taskmaster/internal/config"
	"github.com/Hikki8man/taskmaster/internal/task"
)

// reload re-parses the config file and converges the live task table
// to it. It is synchronous with respect to the loop: no operator
// commands are dispatched while it runs. A parse failure is logged
// and live state is left untouched.
func (m *Monitor) reload() {
	set, err := config.Load(m.ConfigPath)
	if err != nil {
		m.Log.Error().Err(err).Msg("reload: config parse failed, keeping live state")
		if m.Sink != nil {
			m.Sink.Warn("reload failed: %v", err)
		}
		return
	}

	for name, newCfg := range set {
		existing, ok := m.Tasks[name]
		switch {
		case !ok:
			// Present only in new: construct and insert.
			m.Tasks[name] = task.New(name, newCfg, m.Sink)
		case existing.Config.Equal(newCfg):
			// Unchanged name, equal config: do nothing.
		default:
			// Unchanged name, different config: stop, wait, replace.
			existing.Stop("*")
			existing.WaitUntilStopped(TickInterval)
			m.Tasks[name] = task.New(name, newCfg, m.Sink)
		}
	}

	for name, existing := range m.Tasks {
		if _, ok := set[name]; ok {
			continue
		}
		// Present only in old: stop, wait, remove.
		existing.Stop("*")
		existing.WaitUntilStopped(TickInterval)
		delete(m.Tasks, name)
	}

	if m.Sink != nil {
		m.Sink.Info("reload complete")
	}
}
