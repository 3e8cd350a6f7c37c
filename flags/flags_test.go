package flags

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestUniqueFlagNames checks that no flag name is registered twice.
func TestUniqueFlagNames(t *testing.T) {
	seen := make(map[string]struct{})
	for _, flag := range Flags {
		for _, name := range flag.Names() {
			_, ok := seen[name]
			assert.False(t, ok, "duplicate flag name %q", name)
			seen[name] = struct{}{}
		}
	}
}

// TestEnvVarPrefix checks every flag reads from a PWT_-prefixed variable.
func TestEnvVarPrefix(t *testing.T) {
	for _, flag := range Flags {
		docFlag, ok := flag.(cli.DocGenerationFlag)
		require.True(t, ok, "flag %v does not support env vars", flag.Names())
		envVars := docFlag.GetEnvVars()
		require.NotEmpty(t, envVars, "flag %v has no env var", flag.Names())
		for _, envVar := range envVars {
			assert.True(t, strings.HasPrefix(envVar, EnvVarPrefix+"_"),
				"%s does not start with %s_", envVar, EnvVarPrefix)
		}
	}
}

func TestCheckRequired(t *testing.T) {
	app := cli.NewApp()
	app.Flags = Flags
	app.Action = func(ctx *cli.Context) error {
		return CheckRequired(ctx)
	}

	err := app.Run([]string{"app"})
	require.Error(t, err, "features flag is required")

	err = app.Run([]string{"app", "--features", "./features"})
	require.NoError(t, err)
}
