package task

import (
	"testing"
	"time"

	"github.com/Hikki8man/taskmaster/internal/config"
	"github.com/Hikki8man/taskmaster/internal/process"
	"github.com/stretchr/testify/require"
)

func testCfg(numprocs int) config.TaskConfig {
	cfg := config.TaskConfig{Cmd: "/bin/sleep 60", Numprocs: numprocs}.WithDefaults()
	cfg.StartTime = 0
	return cfg
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

func allRunning(procs []*process.Process) bool {
	for _, p := range procs {
		if p.Status() != process.Running {
			return false
		}
	}
	return true
}

func TestAutostartThenStopAll(t *testing.T) {
	tk := New("web", testCfg(2), nil)
	require.Len(t, tk.Processes, 2)

	waitUntil(t, time.Second, func() bool {
		tk.TryWait(time.Now())
		return allRunning(tk.Processes)
	})

	pids := map[int]bool{}
	for _, p := range tk.Processes {
		pids[p.Pid()] = true
	}
	require.Len(t, pids, 2, "replicas must have distinct pids")

	matched, errs := tk.Stop("*")
	require.Equal(t, 2, matched)
	require.Empty(t, errs)

	waitUntil(t, time.Second, func() bool {
		tk.TryWait(time.Now())
		return !tk.AnyAlive()
	})
}

func TestSelectorTargetsSingleReplica(t *testing.T) {
	tk := New("web", testCfg(3), nil)
	waitUntil(t, time.Second, func() bool {
		tk.TryWait(time.Now())
		return allRunning(tk.Processes)
	})

	matched, _ := tk.Stop("1")
	require.Equal(t, 1, matched)

	waitUntil(t, time.Second, func() bool {
		tk.TryWait(time.Now())
		return tk.Processes[1].Status() == process.Stopped
	})
	require.Equal(t, process.Running, tk.Processes[0].Status())
	require.Equal(t, process.Running, tk.Processes[2].Status())

	tk.Kill()
}

func TestSelectOutOfRangeMatchesNothing(t *testing.T) {
	tk := New("web", testCfg(1), nil)
	procs := tk.Select("5")
	require.Empty(t, procs)
	tk.Kill()
}

func TestStartResetsRetries(t *testing.T) {
	cfg := testCfg(1)
	cfg.Autostart = false
	cfg.Cmd = "/bin/false"
	cfg.StartTime = 5 * time.Second
	cfg.StartRetries = 1
	tk := New("bad", cfg, nil)

	matched, _ := tk.Start("*")
	require.Equal(t, 1, matched)

	waitUntil(t, time.Second, func() bool {
		tk.TryWait(time.Now())
		return tk.Processes[0].Status() == process.Fatal
	})

	matched, _ = tk.Start("*")
	require.Equal(t, 1, matched)
	require.Equal(t, 1, tk.Processes[0].Retries())
}
