// Package logging builds the zap logger used by every cback command.
package logging

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects log destinations and verbosity. It combines the logging
// section of the configuration with command-line switches.
type Options struct {
	Level   string // debug, info, warn, error
	Format  string // console or json; applies to the log file
	File    string // empty disables file logging
	Verbose bool   // mirror every entry to stderr
	Quiet   bool   // nothing on stderr
	Debug   bool   // force debug level

	// Owner ("user:group") and Mode are applied when the log file is
	// created. An empty Owner leaves ownership alone; a zero Mode means
	// DefaultFileMode.
	Owner string
	Mode  os.FileMode
}

// DefaultFileMode is the permission of a newly created log file.
const DefaultFileMode os.FileMode = 0640

// New builds a logger. The returned close function syncs and closes the log
// file and is safe to call when no file is configured.
func New(opts Options) (*zap.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	var cores []zapcore.Core
	closeFn := func() error { return nil }

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := openLogFile(opts.File, opts.Owner, opts.Mode)
		if err != nil {
			return nil, nil, err
		}
		cores = append(cores, zapcore.NewCore(newEncoder(opts.Format), zapcore.AddSync(f), level))
		closeFn = func() error {
			if err := f.Sync(); err != nil && !isStdoutSyncError(err) {
				_ = f.Close()
				return err
			}
			return f.Close()
		}
	}

	if !opts.Quiet {
		// Without --verbose the screen only shows problems.
		stderrLevel := zapcore.LevelEnabler(zapcore.WarnLevel)
		if opts.Verbose {
			stderrLevel = level
		} else if level > zapcore.WarnLevel {
			stderrLevel = level
		}
		cores = append(cores, zapcore.NewCore(newEncoder("console"), zapcore.Lock(os.Stderr), stderrLevel))
	}

	if len(cores) == 0 {
		return zap.NewNop(), closeFn, nil
	}
	return zap.New(zapcore.NewTee(cores...)), closeFn, nil
}

// openLogFile opens path for appending. A file created by this call gets
// mode and, when owner is set, that ownership.
func openLogFile(path, owner string, mode os.FileMode) (*os.File, error) {
	if mode == 0 {
		mode = DefaultFileMode
	}
	uid, gid := -1, -1
	if owner != "" {
		var err error
		if uid, gid, err = ParseOwner(owner); err != nil {
			return nil, err
		}
	}

	_, statErr := os.Stat(path)
	created := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, mode)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if !created {
		return f, nil
	}

	// OpenFile is subject to the umask.
	if err := f.Chmod(mode); err != nil {
		f.Close()
		return nil, fmt.Errorf("chmod log file: %w", err)
	}
	if owner != "" {
		if err := f.Chown(uid, gid); err != nil {
			f.Close()
			return nil, fmt.Errorf("chown log file to %s: %w", owner, err)
		}
	}
	return f, nil
}

// ParseOwner resolves "user:group" to numeric IDs.
func ParseOwner(s string) (int, int, error) {
	name, group, ok := strings.Cut(s, ":")
	if !ok || name == "" || group == "" {
		return 0, 0, fmt.Errorf("invalid owner %q (want user:group)", s)
	}
	u, err := user.Lookup(name)
	if err != nil {
		return 0, 0, fmt.Errorf("owner %q: %w", s, err)
	}
	g, err := user.LookupGroup(group)
	if err != nil {
		return 0, 0, fmt.Errorf("owner %q: %w", s, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, 0, fmt.Errorf("owner %q: non-numeric uid %q", s, u.Uid)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return 0, 0, fmt.Errorf("owner %q: non-numeric gid %q", s, g.Gid)
	}
	return uid, gid, nil
}

// ParseFileMode reads an octal permission such as "0640". Empty means
// DefaultFileMode.
func ParseFileMode(s string) (os.FileMode, error) {
	if s == "" {
		return DefaultFileMode, nil
	}
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil || v > 0777 {
		return 0, fmt.Errorf("invalid file mode %q (want octal, e.g. 0640)", s)
	}
	return os.FileMode(v), nil
}

// ParseLevel accepts zap level names; empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// newEncoder creates JSON or console encoder.
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "json" {
		return zapcore.NewJSONEncoder(encoderCfg)
	}
	return zapcore.NewConsoleEncoder(encoderCfg)
}

// isStdoutSyncError checks if error is harmless stdout/stderr sync error.
// On Linux, syncing stdout/stderr returns EINVAL or ENOTTY which are safe to ignore.
func isStdoutSyncError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}
