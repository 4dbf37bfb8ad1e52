package config

import (
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeDefaults(t *testing.T) {
	set, err := Decode(strings.NewReader(`
web:
  cmd: "/bin/sleep 60"
`))
	require.NoError(t, err)
	cfg := set["web"]
	require.Equal(t, 1, cfg.Numprocs)
	require.Equal(t, uint32(0o022), cfg.Umask)
	require.Equal(t, ".", cfg.WorkingDir)
	require.True(t, cfg.Autostart)
	require.Equal(t, Unexpected, cfg.Autorestart)
	require.Equal(t, map[int]struct{}{0: {}}, cfg.ExitCodes)
	require.Equal(t, 3, cfg.StartRetries)
	require.Equal(t, 1*time.Second, cfg.StartTime)
	require.Equal(t, syscall.SIGTERM, cfg.StopSignal)
	require.Equal(t, 10*time.Second, cfg.StopTime)
}

func TestDecodeOverrides(t *testing.T) {
	set, err := Decode(strings.NewReader(`
app:
  cmd: "/bin/sh -c 'exit 7'"
  numprocs: 2
  umask: "077"
  autostart: false
  autorestart: always
  exitcodes: [0, 7]
  startretries: 5
  starttime: 2
  stopsignal: HUP
  stoptime: 0
  env:
    FOO: bar
`))
	require.NoError(t, err)
	cfg := set["app"]
	require.Equal(t, 2, cfg.Numprocs)
	require.Equal(t, uint32(0o077), cfg.Umask)
	require.False(t, cfg.Autostart)
	require.Equal(t, Always, cfg.Autorestart)
	require.Equal(t, map[int]struct{}{0: {}, 7: {}}, cfg.ExitCodes)
	require.Equal(t, 5, cfg.StartRetries)
	require.Equal(t, 2*time.Second, cfg.StartTime)
	require.Equal(t, syscall.SIGHUP, cfg.StopSignal)
	require.Equal(t, time.Duration(0), cfg.StopTime)
	require.Equal(t, map[string]string{"FOO": "bar"}, cfg.Env)
}

func TestDecodeRejectsUnknownField(t *testing.T) {
	_, err := Decode(strings.NewReader(`
web:
  cmd: "/bin/sleep 60"
  bogus: true
`))
	require.Error(t, err)
}

func TestDecodeRejectsBadSignal(t *testing.T) {
	_, err := Decode(strings.NewReader(`
web:
  cmd: "/bin/sleep 60"
  stopsignal: NOTASIGNAL
`))
	require.Error(t, err)
}

func TestDecodeRejectsEmptyCmd(t *testing.T) {
	_, err := Decode(strings.NewReader(`
web:
  cmd: ""
`))
	require.Error(t, err)
}

func TestTaskConfigEqual(t *testing.T) {
	a := TaskConfig{Cmd: "x", Env: map[string]string{"A": "1", "B": "2"}}
	b := TaskConfig{Cmd: "x", Env: map[string]string{"B": "2", "A": "1"}}
	require.True(t, a.Equal(b))

	c := TaskConfig{Cmd: "y", Env: map[string]string{"A": "1", "B": "2"}}
	require.False(t, a.Equal(c))
}

func TestParseSignalNameCaseInsensitiveAndSigPrefix(t *testing.T) {
	sig, err := ParseSignalName("term")
	require.NoError(t, err)
	require.Equal(t, syscall.SIGTERM, sig)

	sig, err = ParseSignalName("SIGKILL")
	require.NoError(t, err)
	require.Equal(t, syscall.SIGKILL, sig)

	_, err = ParseSignalName("BOGUS")
	require.Error(t, err)
}
