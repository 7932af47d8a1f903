// Package model defines the data structures for cback's configuration.
package model

type Config struct {
	Options    OptionsConfig           `yaml:"options"`
	Actions    map[string]ActionConfig `yaml:"actions,omitempty"`
	Extensions ExtensionsConfig        `yaml:"extensions"`
	Hooks      []HookConfig            `yaml:"hooks,omitempty"`
	Logging    LoggingConfig           `yaml:"logging"`
	Metrics    MetricsConfig           `yaml:"metrics"`
	Audit      AuditConfig             `yaml:"audit"`
	Lock       LockConfig              `yaml:"lock"`
}

type OptionsConfig struct {
	StartingDay    string `yaml:"starting_day"`
	WorkingDir     string `yaml:"working_dir"`
	BackupUser     string `yaml:"backup_user"`
	BackupGroup    string `yaml:"backup_group"`
	RcpCommand     string `yaml:"rcp_command"`
	HookPrecedence string `yaml:"hook_precedence"` // "last" (default) or "first"
	Shell          string `yaml:"shell"`
}

// ActionConfig binds a built-in action to the external command implementing it.
type ActionConfig struct {
	Command []string `yaml:"command"`
}

type ExtensionsConfig struct {
	OrderMode string            `yaml:"order_mode"` // "index" (default) or "dependency"
	Actions   []ExtensionConfig `yaml:"actions,omitempty"`
}

type ExtensionConfig struct {
	Name     string            `yaml:"name"`
	Module   string            `yaml:"module"`   // executable
	Function string            `yaml:"function"` // passed as first argument
	Index    *int              `yaml:"index,omitempty"`
	Depends  *DependencyConfig `yaml:"depends,omitempty"`
}

type DependencyConfig struct {
	Before []string `yaml:"before,omitempty"`
	After  []string `yaml:"after,omitempty"`
}

type HookConfig struct {
	Action  string `yaml:"action"`
	Phase   string `yaml:"phase"` // "pre" or "post"
	Command string `yaml:"command"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
	File   string `yaml:"file"`
	Owner  string `yaml:"owner"` // "user:group" applied to a newly created file
	Mode   string `yaml:"mode"`  // octal permission, e.g. "0640"
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // node_exporter textfile collector path
}

type AuditConfig struct {
	Path         string `yaml:"path"`
	MaxSizeBytes int64  `yaml:"max_size_bytes"`
}

type LockConfig struct {
	Path string `yaml:"path"`
}
