package process

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/Hikki8man/taskmaster/internal/cmdline"
	"github.com/Hikki8man/taskmaster/internal/config"
)

// spawn constructs and starts the child described by cfg: program+args
// from Cmd, working directory, an environment extended by Env, stdio
// redirected per stdout/stderr (absent -> discarded), the whole thing
// wrapped in a temporary umask that's restored immediately after Start
// returns.
func spawn(cfg config.TaskConfig) (cmd *exec.Cmd, pid int, stdoutFile, stderrFile *os.File, err error) {
	program, args, err := cmdline.Split(cfg.Cmd)
	if err != nil {
		return nil, 0, nil, nil, fmt.Errorf("spawn: %w", err)
	}

	stdoutFile, stdoutW, err := openStdio(cfg.Stdout)
	if err != nil {
		return nil, 0, nil, nil, fmt.Errorf("spawn: stdout: %w", err)
	}
	stderrFile, stderrW, err := openStdio(cfg.Stderr)
	if err != nil {
		closeIfNotNil(stdoutFile)
		return nil, 0, nil, nil, fmt.Errorf("spawn: stderr: %w", err)
	}

	c := exec.Command(program, args...)
	c.Dir = cfg.WorkingDir
	c.Env = mergeEnv(os.Environ(), cfg.Env)
	c.Stdout = stdoutW
	c.Stderr = stderrW
	c.SysProcAttr = &syscall.SysProcAttr{
		// New process group, child as leader: lets us signal the whole
		// group with kill(-pid, sig) and keeps the daemon's own signals
		// (e.g. an operator-delivered Ctrl-C to the terminal) from also
		// reaching the child directly.
		Setpgid: true,
	}

	old := syscall.Umask(int(cfg.Umask))
	startErr := c.Start()
	syscall.Umask(old)

	if startErr != nil {
		closeIfNotNil(stdoutFile)
		closeIfNotNil(stderrFile)
		return nil, 0, nil, nil, fmt.Errorf("spawn: %w", startErr)
	}

	return c, c.Process.Pid, stdoutFile, stderrFile, nil
}

// openStdio opens path for append-create-write, or returns io.Discard
// when path is empty.
func openStdio(path string) (f *os.File, w io.Writer, err error) {
	if path == "" {
		return nil, io.Discard, nil
	}
	f, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

func closeIfNotNil(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}

// mergeEnv extends base with overrides, overrides winning on key
// collision: environment = parent env extended (and overwritten) by
// the task's own env map.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(overrides))
	for _, kv := range base {
		key := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			key = kv[:i]
		}
		if v, ok := overrides[key]; ok {
			out = append(out, key+"="+v)
			seen[key] = true
			continue
		}
		out = append(out, kv)
	}
	for k, v := range overrides {
		if !seen[k] {
			out = append(out, k+"="+v)
		}
	}
	return out
}

// signalGroup delivers sig to the child's process group, i.e. kill(-pid, sig).
func (p *Process) signalGroup(sig syscall.Signal) error {
	if p.pid == 0 {
		return fmt.Errorf("no running child")
	}
	return syscall.Kill(-p.pid, sig)
}

// forceKillAndReap sends SIGKILL to the process group and blocks,
// briefly, to reap it, logging the forced kill and the resulting exit.
func (p *Process) forceKillAndReap() {
	if p.pid == 0 {
		return
	}
	pid := p.pid
	if p.sink != nil {
		p.sink.KillingSigkill(p.taskName, p.id, pid)
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)

	var ws syscall.WaitStatus
	_, _ = syscall.Wait4(pid, &ws, 0, nil)
	if p.sink != nil {
		p.sink.ExitedSigkill(p.taskName, p.id)
	}
	p.clearHandle()
}

// clearHandle drops the OS child handle and closes any stdio files
// opened for it, restoring the "no child while Stopped/Fatal" invariant.
func (p *Process) clearHandle() {
	p.cmd = nil
	p.pid = 0
	closeIfNotNil(p.stdoutFile)
	closeIfNotNil(p.stderrFile)
	p.stdoutFile = nil
	p.stderrFile = nil
}

// PollExit performs one non-blocking reap attempt (WNOHANG) targeted
// at this process's own pid. exited is true iff the child had already
// terminated; err surfaces waitpid failures so the caller can log them
// and leave the Process in its current state for the next tick to
// retry.
func (p *Process) PollExit() (exited bool, ws syscall.WaitStatus, err error) {
	if p.pid == 0 {
		return false, ws, nil
	}
	gotPid, werr := syscall.Wait4(p.pid, &ws, syscall.WNOHANG, nil)
	if werr != nil {
		if werr == syscall.ECHILD {
			return false, ws, nil
		}
		return false, ws, fmt.Errorf("waitpid %s: %w", ref(p), werr)
	}
	if gotPid == p.pid {
		return true, ws, nil
	}
	return false, ws, nil
}
