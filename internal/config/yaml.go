package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// rawTaskConfig mirrors the on-disk YAML shape. Autostart, StartTime and
// StopTime are pointers so the decoder can tell "absent" (-> default) from
// "explicitly the zero value", which matters for starttime and stoptime: 0
// is a legitimate (if aggressive) configuration, not just "unset"; resolve() tracks the same
// distinction for Umask ("000" is a legitimate, meaningful mask) off of
// its string zero value instead, since an octal string has no numeric
// zero ambiguity to guard against. Decoding happens with
// Decoder.KnownFields(true), so any field not listed here makes the whole
// file fail: unknown fields are rejected rather than silently ignored.
type rawTaskConfig struct {
	Cmd          string            `yaml:"cmd"`
	Numprocs     int               `yaml:"numprocs"`
	Umask        string            `yaml:"umask"`
	WorkingDir   string            `yaml:"workingdir"`
	Autostart    *bool             `yaml:"autostart"`
	Autorestart  string            `yaml:"autorestart"`
	ExitCodes    []int             `yaml:"exitcodes"`
	StartRetries int               `yaml:"startretries"`
	StartTime    *int              `yaml:"starttime"`
	StopSignal   string            `yaml:"stopsignal"`
	StopTime     *int              `yaml:"stoptime"`
	Stdout       string            `yaml:"stdout"`
	Stderr       string            `yaml:"stderr"`
	Env          map[string]string `yaml:"env"`
}

// Load reads and validates a ConfigSet from a YAML file at path.
func Load(path string) (ConfigSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a ConfigSet out of r. Split from Load so tests can feed a
// strings.Reader directly.
func Decode(r io.Reader) (ConfigSet, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var raw map[string]rawTaskConfig
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return ConfigSet{}, nil
		}
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	set := make(ConfigSet, len(raw))
	for name, r := range raw {
		cfg, err := r.resolve()
		if err != nil {
			return nil, fmt.Errorf("config: task %q: %w", name, err)
		}
		set[name] = cfg
	}
	return set, nil
}

func (r rawTaskConfig) resolve() (TaskConfig, error) {
	if strings.TrimSpace(r.Cmd) == "" {
		return TaskConfig{}, fmt.Errorf("cmd must not be empty")
	}

	cfg := TaskConfig{
		Cmd:          r.Cmd,
		Numprocs:     r.Numprocs,
		WorkingDir:   r.WorkingDir,
		Autostart:    true,
		StartRetries: r.StartRetries,
		StartTime:    1 * time.Second,
		Stdout:       r.Stdout,
		Stderr:       r.Stderr,
		Env:          r.Env,
	}
	if r.Autostart != nil {
		cfg.Autostart = *r.Autostart
	}
	if r.StartTime != nil {
		cfg.StartTime = time.Duration(*r.StartTime) * time.Second
	}
	if r.Numprocs < 0 {
		return TaskConfig{}, fmt.Errorf("numprocs must not be negative")
	}
	if r.StartRetries < 0 {
		return TaskConfig{}, fmt.Errorf("startretries must not be negative")
	}
	stopTimeSet := false
	if r.StopTime != nil {
		if *r.StopTime < 0 {
			return TaskConfig{}, fmt.Errorf("stoptime must not be negative")
		}
		cfg.StopTime = time.Duration(*r.StopTime) * time.Second
		stopTimeSet = true
	}

	umaskSet := false
	var umask uint32
	if r.Umask != "" {
		mask, err := strconv.ParseUint(r.Umask, 8, 32)
		if err != nil {
			return TaskConfig{}, fmt.Errorf("bad umask %q: %w", r.Umask, err)
		}
		umask = uint32(mask)
		cfg.Umask = umask
		umaskSet = true
	}

	policy, err := ParseAutorestartPolicy(r.Autorestart)
	if err != nil {
		return TaskConfig{}, err
	}
	cfg.Autorestart = policy

	if r.StopSignal != "" {
		sig, err := ParseSignalName(r.StopSignal)
		if err != nil {
			return TaskConfig{}, err
		}
		cfg.StopSignal = sig
	}

	if len(r.ExitCodes) > 0 {
		codes := make(map[int]struct{}, len(r.ExitCodes))
		for _, c := range r.ExitCodes {
			codes[c] = struct{}{}
		}
		cfg.ExitCodes = codes
	}

	cfg = cfg.WithDefaults()
	if stopTimeSet {
		cfg.StopTime = time.Duration(*r.StopTime) * time.Second
	}
	if umaskSet {
		cfg.Umask = umask
	}
	return cfg, nil
}
