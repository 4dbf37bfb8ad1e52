// Package logsink implements the supervisor's append-only event log,
// one line per notable lifecycle event. It is a fixed, testable text
// format — distinct from the ambient zerolog-based diagnostic logging
// the rest of the daemon uses — and is written only from the
// Monitor's loop thread, so it needs no locking of its own.
package logsink

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Sink is a create-on-open, append-on-write event writer. Write
// failures are swallowed: a log sink must never be the reason the
// supervision loop stalls or panics.
type Sink struct {
	w   io.Writer
	now func() time.Time
}

// Open creates (or appends to) the log file at path. An empty path
// discards all events, since the log file is allowed to be absent.
func Open(path string) (*Sink, error) {
	if path == "" {
		return &Sink{w: io.Discard, now: time.Now}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("logsink: open %s: %w", path, err)
	}
	return &Sink{w: f, now: time.Now}, nil
}

func (s *Sink) write(format string, args ...any) {
	if s == nil || s.w == nil {
		return
	}
	line := fmt.Sprintf("%s %s\n", s.now().Format("2006-01-02 15:04:05,000"), fmt.Sprintf(format, args...))
	_, _ = io.WriteString(s.w, line)
}

func ref(task string, id int) string {
	return fmt.Sprintf("%s:%d", task, id)
}

// Spawned logs a successful spawn.
func (s *Sink) Spawned(task string, id, pid int) {
	s.write("INFO spawned: '%s' with pid %d", ref(task, id), pid)
}

// WaitingStop logs that a graceful stop was issued and is being waited on.
func (s *Sink) WaitingStop(task string, id int) {
	s.write("INFO waiting for '%s' to stop", ref(task, id))
}

// ExitedCode logs a normal exit, noting whether the code was expected.
func (s *Sink) ExitedCode(task string, id, code int, expected bool) {
	s.write("INFO exited: '%s' (exit status %d; %s)", ref(task, id), code, expectedWord(expected))
}

// ExitedSignal logs a signal-induced death, always unexpected.
func (s *Sink) ExitedSignal(task string, id int, sigName string) {
	s.write("INFO exited: '%s' (terminated by SIG%s; not expected)", ref(task, id), sigName)
}

// Stopped logs a graceful-stop completion.
func (s *Sink) Stopped(task string, id int, reason string) {
	s.write("INFO stopped: '%s' (%s)", ref(task, id), reason)
}

// Success logs the Starting->Running promotion.
func (s *Sink) Success(task string, id int) {
	s.write("INFO success: '%s' is now in a running state", ref(task, id))
}

// KillingSigkill logs the stoptime-elapsed forced kill.
func (s *Sink) KillingSigkill(task string, id, pid int) {
	s.write("WARN killing '%s' (%d) with SIGKILL", ref(task, id), pid)
}

// ExitedSigkill logs reaping of a forcibly killed child.
func (s *Sink) ExitedSigkill(task string, id int) {
	s.write("INFO exited: '%s' (terminated by SIGKILL)", ref(task, id))
}

// Info logs a free-form informational line (e.g. reload confirmation).
func (s *Sink) Info(format string, args ...any) {
	s.write("INFO "+format, args...)
}

// Warn logs a free-form warning line.
func (s *Sink) Warn(format string, args ...any) {
	s.write("WARN "+format, args...)
}

func expectedWord(expected bool) string {
	if expected {
		return "expected"
	}
	return "not expected"
}
