// Package cmdline splits a TaskConfig.Cmd string into a program and its
// argument vector.
package cmdline

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// Split tokenizes cmd shell-style (honouring quotes, same as a POSIX
// shell would) and returns the program (first token) and the remaining
// arguments. Plain whitespace splitting would suffice, but shlex's
// quote-awareness is a strict superset of that behaviour.
func Split(cmd string) (program string, args []string, err error) {
	fields, err := shlex.Split(strings.TrimSpace(cmd))
	if err != nil {
		return "", nil, fmt.Errorf("cmdline: %w", err)
	}
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("cmdline: empty command")
	}
	return fields[0], fields[1:], nil
}
