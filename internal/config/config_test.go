package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
options:
  starting_day: tuesday
  working_dir: /var/lib/cback
  backup_user: backup
  backup_group: backup
  rcp_command: /usr/bin/scp -B
actions:
  collect:
    command: [/usr/lib/cback/collect, --verbose]
extensions:
  order_mode: dependency
  actions:
    - name: mysql
      module: /usr/lib/cback/ext/mysql
      function: dump
      depends:
        before: [stage]
        after: [collect]
    - name: sysinfo
      module: /usr/lib/cback/ext/sysinfo
hooks:
  - action: collect
    phase: pre
    command: echo A
  - action: stage
    phase: post
    command: echo B
logging:
  level: debug
  format: json
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "tuesday", cfg.Options.StartingDay)
	assert.Equal(t, "/usr/bin/scp -B", cfg.Options.RcpCommand)
	assert.Equal(t, []string{"/usr/lib/cback/collect", "--verbose"}, cfg.Actions["collect"].Command)
	assert.Equal(t, "dependency", cfg.Extensions.OrderMode)
	require.Len(t, cfg.Extensions.Actions, 2)

	mysql := cfg.Extensions.Actions[0]
	assert.Equal(t, "mysql", mysql.Name)
	assert.Equal(t, "dump", mysql.Function)
	assert.Nil(t, mysql.Index)
	require.NotNil(t, mysql.Depends)
	assert.Equal(t, []string{"stage"}, mysql.Depends.Before)
	assert.Equal(t, []string{"collect"}, mysql.Depends.After)
	assert.Nil(t, cfg.Extensions.Actions[1].Depends)

	require.Len(t, cfg.Hooks, 2)
	assert.Equal(t, "collect", cfg.Hooks[0].Action)
	assert.Equal(t, "pre", cfg.Hooks[0].Phase)
	assert.Equal(t, "echo A", cfg.Hooks[0].Command)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("options: {}\n"))
	require.NoError(t, err)

	assert.Equal(t, "monday", cfg.Options.StartingDay)
	assert.Equal(t, "/var/lib/cback", cfg.Options.WorkingDir)
	assert.Equal(t, "last", cfg.Options.HookPrecedence)
	assert.Equal(t, "/bin/sh", cfg.Options.Shell)
	assert.Equal(t, "index", cfg.Extensions.OrderMode)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "0640", cfg.Logging.Mode)
	assert.Empty(t, cfg.Logging.Owner)
	assert.Zero(t, cfg.Audit.MaxSizeBytes)
}

func TestParse_AuditSizeDefaultsWhenEnabled(t *testing.T) {
	cfg, err := Parse([]byte("audit:\n  path: /tmp/audit.jsonl\n"))
	require.NoError(t, err)
	assert.EqualValues(t, 100*1024*1024, cfg.Audit.MaxSizeBytes)
}

func TestParse_EnvOverride(t *testing.T) {
	t.Setenv("CBACK_OPTIONS_WORKING_DIR", "/srv/cback")
	t.Setenv("CBACK_EXTENSIONS_ORDER_MODE", "dependency")
	t.Setenv("CBACK_LOGGING_LEVEL", "warn")

	cfg, err := Parse([]byte("options:\n  working_dir: /var/lib/cback\n"))
	require.NoError(t, err)
	assert.Equal(t, "/srv/cback", cfg.Options.WorkingDir)
	assert.Equal(t, "dependency", cfg.Extensions.OrderMode)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "options.working_dir", envKey("CBACK_OPTIONS_WORKING_DIR"))
	assert.Equal(t, "logging.level", envKey("CBACK_LOGGING_LEVEL"))
	assert.Equal(t, "lock", envKey("CBACK_LOCK"))
}

func TestParse_ValidationErrorsCollected(t *testing.T) {
	bad := `
options:
  starting_day: someday
  working_dir: relative/path
  hook_precedence: middle
actions:
  validate:
    command: [/bin/true]
  stage:
    command: []
extensions:
  actions:
    - name: collect
      module: /bin/true
      index: 1
    - name: dup
      module: /bin/true
      index: 1
    - name: dup
      index: 2
    - name: noindex
      module: /bin/true
hooks:
  - action: collect
    phase: during
    command: ""
logging:
  format: xml
  mode: "0999"
  owner: backup
`
	_, err := Parse([]byte(bad))
	require.Error(t, err)

	var verrs *ValidationErrors
	require.ErrorAs(t, err, &verrs)

	msg := verrs.Error()
	for _, field := range []string{
		"options.starting_day",
		"options.working_dir",
		"options.hook_precedence",
		"actions.validate",
		"actions.stage.command",
		"extensions.actions[0].name",
		"extensions.actions[2].name",
		"extensions.actions[2].module",
		"extensions.actions[3].index",
		"hooks[0].phase",
		"hooks[0].command",
		"logging.format",
		"logging.mode",
		"logging.owner",
	} {
		assert.Contains(t, msg, field)
	}
	assert.True(t, strings.HasPrefix(verrs.FormatStderr(), "error: "))
}

func TestParse_LogFileOwnerAndMode(t *testing.T) {
	cfg, err := Parse([]byte("logging:\n  owner: backup:adm\n  mode: \"0600\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "backup:adm", cfg.Logging.Owner)
	assert.Equal(t, "0600", cfg.Logging.Mode)
}

func TestParse_UnquotedModeRejected(t *testing.T) {
	_, err := Parse([]byte("logging:\n  mode: 0640\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.mode")
}

func TestParse_DependencyModeNeedsNoIndex(t *testing.T) {
	cfg := `
extensions:
  order_mode: dependency
  actions:
    - name: one
      module: /bin/true
`
	_, err := Parse([]byte(cfg))
	assert.NoError(t, err)
}

func TestParse_UnknownOrderMode(t *testing.T) {
	_, err := Parse([]byte("extensions:\n  order_mode: random\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extensions.order_mode")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cback.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tuesday", cfg.Options.StartingDay)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cback.yaml")
	big := make([]byte, maxConfigFileSize+1)
	for i := range big {
		big[i] = '#'
	}
	require.NoError(t, os.WriteFile(path, big, 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("options: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
