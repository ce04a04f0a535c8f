package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/rmtree/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func load(t *testing.T, input config.Input) config.Config {
	t.Helper()

	cfg, err := config.Load(input)
	require.NoError(t, err)

	return cfg
}

func Test_Load_Returns_Defaults_When_No_Files_Exist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := load(t, config.Input{WorkDirOverride: dir, Env: map[string]string{}})

	if got, want := cfg.DatabaseAbs, filepath.Join(dir, ".rmtree", "installed.json"); got != want {
		t.Errorf("DatabaseAbs=%q, want=%q", got, want)
	}

	if got, want := cfg.Workers, 8; got != want {
		t.Errorf("Workers=%d, want=%d", got, want)
	}

	if got, want := cfg.LogLevel, "warn"; got != want {
		t.Errorf("LogLevel=%q, want=%q", got, want)
	}

	if got, want := cfg.LockTimeoutDuration, 10*time.Second; got != want {
		t.Errorf("LockTimeoutDuration=%v, want=%v", got, want)
	}

	if cfg.CellarAbs != "" {
		t.Errorf("CellarAbs=%q, want empty", cfg.CellarAbs)
	}

	if cfg.Sources != (config.Sources{}) {
		t.Errorf("Sources=%+v, want none", cfg.Sources)
	}
}

func Test_Load_Applies_Layers_In_Precedence_Order(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	xdg := t.TempDir()

	writeFile(t, filepath.Join(xdg, "rmtree", "config.json"), `{
		// global
		"database": "global.json",
		"cellar": "/opt/cellar",
		"ignore": ["git"],
	}`)
	writeFile(t, filepath.Join(dir, config.FileName), `{"database": "project.yaml", "workers": 2, "ignore": ["python"]}`)

	cfg := load(t, config.Input{
		WorkDirOverride: dir,
		Env: map[string]string{
			"XDG_CONFIG_HOME":  xdg,
			config.EnvLogLevel: "debug",
		},
	})

	if got, want := cfg.DatabaseAbs, filepath.Join(dir, "project.yaml"); got != want {
		t.Errorf("DatabaseAbs=%q, want=%q", got, want)
	}

	if got, want := cfg.CellarAbs, "/opt/cellar"; got != want {
		t.Errorf("CellarAbs=%q, want=%q", got, want)
	}

	if got, want := cfg.Workers, 2; got != want {
		t.Errorf("Workers=%d, want=%d", got, want)
	}

	if got, want := cfg.LogLevel, "debug"; got != want {
		t.Errorf("LogLevel=%q, want=%q", got, want)
	}

	if diff := cmp.Diff([]string{"git", "python"}, cfg.Ignore); diff != "" {
		t.Errorf("Ignore mismatch (-want +got):\n%s", diff)
	}

	want := config.Sources{
		Global:  filepath.Join(xdg, "rmtree", "config.json"),
		Project: filepath.Join(dir, config.FileName),
	}
	if cfg.Sources != want {
		t.Errorf("Sources=%+v, want=%+v", cfg.Sources, want)
	}
}

func Test_Load_Prefers_CLI_Override_When_Env_Also_Sets_Database(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg := load(t, config.Input{
		WorkDirOverride:  dir,
		DatabaseOverride: "/abs/cli.json",
		Env:              map[string]string{config.EnvDatabase: "env.json"},
	})

	if got, want := cfg.DatabaseAbs, "/abs/cli.json"; got != want {
		t.Errorf("DatabaseAbs=%q, want=%q", got, want)
	}
}

func Test_Load_Uses_Home_When_XDG_Unset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	home := t.TempDir()

	writeFile(t, filepath.Join(home, ".config", "rmtree", "config.json"), `{"cellar": "cellar"}`)

	cfg := load(t, config.Input{WorkDirOverride: dir, Env: map[string]string{"HOME": home}})

	if got, want := cfg.CellarAbs, filepath.Join(dir, "cellar"); got != want {
		t.Errorf("CellarAbs=%q, want=%q", got, want)
	}
}

func Test_Load_Reads_Explicit_Config_When_Flag_Given(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, config.FileName), `{"database": "ignored.json"}`)
	writeFile(t, filepath.Join(dir, "custom.json"), `{"database": "custom-db.json"}`)

	cfg := load(t, config.Input{WorkDirOverride: dir, ConfigPath: "custom.json", Env: map[string]string{}})

	if got, want := cfg.DatabaseAbs, filepath.Join(dir, "custom-db.json"); got != want {
		t.Errorf("DatabaseAbs=%q, want=%q", got, want)
	}
}

func Test_Load_Returns_Error_When_Config_Is_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{name: "empty database", content: `{"database": ""}`, want: config.ErrDatabaseEmpty},
		{name: "zero workers", content: `{"workers": 0}`, want: config.ErrWorkersInvalid},
		{name: "bad lock timeout", content: `{"lock_timeout": "soon"}`, want: config.ErrLockTimeoutInvalid},
		{name: "negative lock timeout", content: `{"lock_timeout": "-1s"}`, want: config.ErrLockTimeoutInvalid},
		{name: "bad level", content: `{"log_level": "loud"}`, want: config.ErrConfigInvalid},
		{name: "bad json", content: `{"database": `, want: config.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, config.FileName), tt.content)

			_, err := config.Load(config.Input{WorkDirOverride: dir, Env: map[string]string{}})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err=%v, want=%v", err, tt.want)
			}
		})
	}
}

func Test_Load_Returns_NotFound_When_Explicit_Config_Missing(t *testing.T) {
	t.Parallel()

	_, err := config.Load(config.Input{
		WorkDirOverride: t.TempDir(),
		ConfigPath:      "missing.json",
		Env:             map[string]string{},
	})
	if !errors.Is(err, config.ErrConfigFileNotFound) {
		t.Fatalf("err=%v, want=%v", err, config.ErrConfigFileNotFound)
	}
}
