package operator

import "strings"

// Parse turns one operator console line into a Command, per the
// grammar:
//
//	status [task[:id] ...]
//	start   task[:id] [task[:id] ...]
//	stop    task[:id] [task[:id] ...]
//	restart task[:id] [task[:id] ...]
//	update
//	shutdown
//	kill
//	help
//
// Missing arguments to start/stop/restart produce a usage diagnostic
// and no state change (ParseError set, Verb left as the parsed verb so
// the caller can still print a verb-specific usage line).
func Parse(line string) Command {
	fields := strings.Fields(line)
	cmd := Command{Raw: line}
	if len(fields) == 0 {
		cmd.Verb = Unknown
		cmd.ParseError = "empty command"
		return cmd
	}

	verb := strings.ToLower(fields[0])
	args := fields[1:]

	switch verb {
	case "status":
		cmd.Verb = StatusVerb
		cmd.Targets = parseTargets(args)
	case "start":
		cmd.Verb = StartVerb
		cmd.Targets = parseTargets(args)
		if len(cmd.Targets) == 0 {
			cmd.ParseError = "usage: start task[:id] [task[:id] ...]"
		}
	case "stop":
		cmd.Verb = StopVerb
		cmd.Targets = parseTargets(args)
		if len(cmd.Targets) == 0 {
			cmd.ParseError = "usage: stop task[:id] [task[:id] ...]"
		}
	case "restart":
		cmd.Verb = RestartVerb
		cmd.Targets = parseTargets(args)
		if len(cmd.Targets) == 0 {
			cmd.ParseError = "usage: restart task[:id] [task[:id] ...]"
		}
	case "update":
		cmd.Verb = UpdateVerb
	case "shutdown":
		cmd.Verb = ShutdownVerb
	case "kill":
		cmd.Verb = KillVerb
	case "help":
		cmd.Verb = HelpVerb
	default:
		cmd.Verb = Unknown
		cmd.ParseError = "unknown command: " + fields[0]
	}
	return cmd
}

func parseTargets(args []string) []Target {
	targets := make([]Target, 0, len(args))
	for _, a := range args {
		task, id, found := strings.Cut(a, ":")
		selector := "*"
		if found {
			selector = id
		}
		targets = append(targets, Target{Task: task, Selector: selector})
	}
	return targets
}

// HelpText is printed for the `help` verb.
const HelpText = `status [task[:id] ...]   show replica status, optionally filtered
start   task[:id] ...    start replicas, resetting their retry budget
stop    task[:id] ...    gracefully stop replicas
restart task[:id] ...    restart replicas
update                   reload the configuration file now
shutdown                 stop every task, then exit
kill                     hard-kill every replica and exit immediately
help                     show this text`
