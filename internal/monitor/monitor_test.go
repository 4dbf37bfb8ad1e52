package monitor

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Hikki8man/taskmaster/internal/operator"
	"github.com/Hikki8man/taskmaster/internal/process"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "tasks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func newMonitor(t *testing.T, configBody string) (*Monitor, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	path := writeConfig(t, dir, configBody)
	var out bytes.Buffer
	m := New(path, operator.NewChan(), nil, zerolog.Nop())
	m.Out = &out
	require.NoError(t, m.LoadInitial())
	return m, &out
}

func waitUntil(t *testing.T, timeout time.Duration, f func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if f() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, f(), "condition not met within %s", timeout)
}

func (m *Monitor) tickAll() {
	now := time.Now()
	for _, t := range m.Tasks {
		t.TryWait(now)
	}
}

func TestLoadInitialAutostarts(t *testing.T) {
	m, _ := newMonitor(t, `
web:
  cmd: "/bin/sleep 60"
  numprocs: 2
  starttime: 0
`)
	waitUntil(t, time.Second, func() bool {
		m.tickAll()
		for _, p := range m.Tasks["web"].Processes {
			if p.Status() != process.Running {
				return false
			}
		}
		return true
	})
	for _, t := range m.Tasks {
		t.Kill()
	}
}

func TestReloadIdempotentOnEqualConfig(t *testing.T) {
	body := `
web:
  cmd: "/bin/sleep 60"
  starttime: 0
`
	m, _ := newMonitor(t, body)
	waitUntil(t, time.Second, func() bool {
		m.tickAll()
		return m.Tasks["web"].Processes[0].Status() == process.Running
	})
	before := m.Tasks["web"]
	beforePid := before.Processes[0].Pid()

	m.reload()

	require.Same(t, before, m.Tasks["web"], "unchanged config must not replace the Task")
	require.Equal(t, beforePid, m.Tasks["web"].Processes[0].Pid())
	m.Tasks["web"].Kill()
}

func TestReloadDiffStopsAddsRemoves(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
a:
  cmd: "/bin/sleep 60"
  numprocs: 1
  starttime: 0
gone:
  cmd: "/bin/sleep 60"
  starttime: 0
`)
	m := New(path, operator.NewChan(), nil, zerolog.Nop())
	require.NoError(t, m.LoadInitial())

	waitUntil(t, time.Second, func() bool {
		m.tickAll()
		return m.Tasks["a"].Processes[0].Status() == process.Running &&
			m.Tasks["gone"].Processes[0].Status() == process.Running
	})

	writeConfig(t, dir, `
a:
  cmd: "/bin/sleep 60"
  numprocs: 2
  starttime: 0
b:
  cmd: "/bin/sleep 60"
  starttime: 0
`)

	m.reload()

	_, stillThere := m.Tasks["gone"]
	require.False(t, stillThere, "task removed from config must be removed from the table")

	require.Len(t, m.Tasks["a"].Processes, 2, "changed config must be replaced wholesale")
	require.Contains(t, m.Tasks, "b")

	waitUntil(t, time.Second, func() bool {
		m.tickAll()
		for _, p := range m.Tasks["a"].Processes {
			if p.Status() != process.Running {
				return false
			}
		}
		return m.Tasks["b"].Processes[0].Status() == process.Running
	})

	for _, t := range m.Tasks {
		t.Kill()
	}
}

func TestDispatchStartUnknownTask(t *testing.T) {
	m, out := newMonitor(t, `
web:
  cmd: "/bin/sleep 60"
  starttime: 0
`)
	defer m.Tasks["web"].Kill()

	m.dispatch(operator.Command{Verb: operator.StartVerb, Targets: []operator.Target{{Task: "nope", Selector: "*"}}})
	require.Contains(t, out.String(), "no such task")
}

func TestDispatchKillExitsImmediately(t *testing.T) {
	m, _ := newMonitor(t, `
web:
  cmd: "/bin/sleep 60"
  starttime: 0
`)
	exit, code := m.dispatch(operator.Command{Verb: operator.KillVerb})
	require.True(t, exit)
	require.Equal(t, 0, code)
	require.Equal(t, process.Stopped, m.Tasks["web"].Processes[0].Status())
}
