// Package config holds the typed, validated, value-comparable task
// descriptors the rest of the supervisor operates on.
package config

import (
	"fmt"
	"reflect"
	"syscall"
	"time"
)

// AutorestartPolicy decides whether a Process is respawned after an
// unexpected exit in the Running state.
type AutorestartPolicy int

const (
	Unexpected AutorestartPolicy = iota
	Always
	Never
)

func (p AutorestartPolicy) String() string {
	switch p {
	case Always:
		return "always"
	case Never:
		return "never"
	default:
		return "unexpected"
	}
}

func ParseAutorestartPolicy(s string) (AutorestartPolicy, error) {
	switch s {
	case "", "unexpected":
		return Unexpected, nil
	case "always":
		return Always, nil
	case "never":
		return Never, nil
	default:
		return Unexpected, fmt.Errorf("config: unknown autorestart policy %q", s)
	}
}

// TaskConfig is immutable once constructed and value-comparable on every
// field, including Env (order-independent map) and ExitCodes (a set).
// Reload relies on Equal to decide whether a task needs replacing.
type TaskConfig struct {
	Cmd          string
	Numprocs     int
	Umask        uint32
	WorkingDir   string
	Autostart    bool
	Autorestart  AutorestartPolicy
	ExitCodes    map[int]struct{}
	StartRetries int
	StartTime    time.Duration
	StopSignal   syscall.Signal
	StopTime     time.Duration
	Stdout       string
	Stderr       string
	Env          map[string]string
}

// WithDefaults returns a copy of cfg with every zero-valued field
// filled in. Called once, right after YAML decode.
func (cfg TaskConfig) WithDefaults() TaskConfig {
	if cfg.Numprocs == 0 {
		cfg.Numprocs = 1
	}
	if cfg.Umask == 0 {
		cfg.Umask = 0o022
	}
	if cfg.WorkingDir == "" {
		cfg.WorkingDir = "."
	}
	if cfg.ExitCodes == nil {
		cfg.ExitCodes = map[int]struct{}{0: {}}
	}
	if cfg.StartRetries == 0 {
		cfg.StartRetries = 3
	}
	if cfg.StopSignal == 0 {
		cfg.StopSignal = syscall.SIGTERM
	}
	if cfg.StopTime == 0 {
		cfg.StopTime = 10 * time.Second
	}
	// Autorestart defaults to its Go zero value (Unexpected). The
	// defaults of Autostart (true) and StartTime (1s) are applied by the
	// decoder instead: true isn't the bool zero value, and an explicit
	// starttime of 0 must stay 0, so a zero StartTime is left as is here.
	return cfg
}

// Equal is full value-equality across every field, used by reload to
// decide Unchanged-vs-Replace. Maps compare order-independently via
// reflect.DeepEqual, which is exactly what a set/map needs here.
func (cfg TaskConfig) Equal(other TaskConfig) bool {
	return reflect.DeepEqual(cfg, other)
}

// ExitCodeExpected reports whether code is in the task's expected set.
func (cfg TaskConfig) ExitCodeExpected(code int) bool {
	_, ok := cfg.ExitCodes[code]
	return ok
}

// ConfigSet is the top-level mapping produced by the config loader:
// task name -> validated TaskConfig.
type ConfigSet map[string]TaskConfig
