// Command taskmasterd is the supervisor daemon: it loads a YAML task
// config, supervises the configured children, and accepts operator
// commands over stdin until shutdown.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Hikki8man/taskmaster/internal/logsink"
	"github.com/Hikki8man/taskmaster/internal/monitor"
	"github.com/Hikki8man/taskmaster/internal/operator"
	"github.com/Hikki8man/taskmaster/internal/terminal"
)

const defaultConfigPath = "tasks.yaml"

func newLogger() zerolog.Logger {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func newRootCmd() *cobra.Command {
	var logPath string

	cmd := &cobra.Command{
		Use:   "taskmasterd [path]",
		Short: "taskmasterd supervises a configured set of child processes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := defaultConfigPath
			if len(args) == 1 {
				configPath = args[0]
			}
			code := run(configPath, logPath)
			if code != 0 {
				os.Exit(code)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&logPath, "logfile", "taskmasterd.log", "path to the supervisor event log")
	return cmd
}

func run(configPath, logFilePath string) int {
	log := newLogger()

	sink, err := logsink.Open(logFilePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to open event log")
		return 1
	}

	cmds := operator.NewChan()
	m := monitor.New(configPath, cmds, sink, log)

	if err := m.LoadInitial(); err != nil {
		log.Error().Err(err).Str("config", configPath).Msg("failed to load configuration")
		return 1
	}

	stopHangup := m.Reload.Watch()
	defer stopHangup()

	term, err := terminal.New(cmds, "", func() []string {
		names := make([]string, 0, len(m.Tasks))
		for name := range m.Tasks {
			names = append(names, name)
		}
		return names
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to start operator terminal")
		return 1
	}
	go term.Run()
	defer term.Close()

	fmt.Fprintln(os.Stdout, "taskmasterd started, type 'help' for commands")
	return m.Run()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
