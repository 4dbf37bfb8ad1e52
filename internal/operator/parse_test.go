package operator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatusNoArgs(t *testing.T) {
	cmd := Parse("status")
	require.Equal(t, StatusVerb, cmd.Verb)
	require.Empty(t, cmd.Targets)
	require.Empty(t, cmd.ParseError)
}

func TestParseStopWithSelector(t *testing.T) {
	cmd := Parse("stop web:1")
	require.Equal(t, StopVerb, cmd.Verb)
	require.Equal(t, []Target{{Task: "web", Selector: "1"}}, cmd.Targets)
}

func TestParseStartWithoutSelectorDefaultsToWildcard(t *testing.T) {
	cmd := Parse("start web")
	require.Equal(t, []Target{{Task: "web", Selector: "*"}}, cmd.Targets)
}

func TestParseStartMissingArgsIsUsageError(t *testing.T) {
	cmd := Parse("start")
	require.Equal(t, StartVerb, cmd.Verb)
	require.NotEmpty(t, cmd.ParseError)
}

func TestParseUnknownVerb(t *testing.T) {
	cmd := Parse("frobnicate web")
	require.Equal(t, Unknown, cmd.Verb)
	require.NotEmpty(t, cmd.ParseError)
}

func TestParseMultipleTargets(t *testing.T) {
	cmd := Parse("restart web:0 api")
	require.Equal(t, []Target{{Task: "web", Selector: "0"}, {Task: "api", Selector: "*"}}, cmd.Targets)
}
