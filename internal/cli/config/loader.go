package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	sharedcfg "github.com/leapstack-labs/tablekit/internal/config"
	"github.com/spf13/pflag"
)

type loggerKey struct{}

// EnvPrefix is the prefix of environment variables read into the config.
// A double underscore separates nested keys: TABLEKIT_TARGET__PASSWORD -> target.password.
const EnvPrefix = "TABLEKIT_"

// flagKeys maps CLI flag names onto config keys when they differ.
var flagKeys = map[string]string{
	"state":        "state_path",
	"type":         "target.type",
	"database":     "target.database",
	"host":         "target.host",
	"port":         "target.port",
	"user":         "target.user",
	"schema":       "target.schema",
	"backup-dir":   "backup.dir",
	"backup-every": "backup.interval",
	"addr":         "api.addr",
}

// pathFlags hold filesystem paths given relative to the working directory.
var pathFlags = map[string]bool{
	"state":      true,
	"database":   true,
	"backup-dir": true,
}

var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// ResetConfig forgets the last load. Tests call it between cases.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// resolvePathRelativeTo anchors a relative path at baseDir. Empty, in-memory
// and absolute paths pass through.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// projectRoot picks the directory relative config paths are anchored to.
// Priority: explicit config file's directory > upward search from CWD > CWD.
func projectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}
	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	if root := sharedcfg.FindProjectRoot(cwd); root != "" {
		return root
	}
	return cwd
}

// LoadConfig layers defaults, the config file, TABLEKIT_ environment
// variables and explicitly set flags, in increasing priority.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")
	configFileUsed = ""

	root := projectRoot(cfgFile)
	if cfgFile == "" {
		cfgFile = sharedcfg.FindConfigFile(root)
	}

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	flagPaths, err := loadFlags(flags)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if cfg.Target == nil {
		cfg.Target = &TargetConfig{Type: "sqlite"}
	}
	expandTargetEnvVars(cfg.Target)
	sharedcfg.ApplyTargetDefaults(cfg.Target)

	// Flag paths are relative to the CWD, file and env paths to the project root.
	cfg.ProjectRoot = root
	cfg.StatePath = pick(flagPaths["state_path"], resolvePathRelativeTo(cfg.StatePath, root))
	cfg.Backup.Dir = pick(flagPaths["backup.dir"], resolvePathRelativeTo(cfg.Backup.Dir, root))
	if sharedcfg.IsFileType(cfg.Target.Type) {
		cfg.Target.Database = pick(flagPaths["target.database"], resolvePathRelativeTo(cfg.Target.Database, root))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	currentConfig = &cfg
	return &cfg, nil
}

// envKey maps TABLEKIT_STATUS__END_COLUMN to status.end_column.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// loadFlags layers explicitly set flags over k and returns the absolute
// form of any path flags, keyed by config key.
func loadFlags(flags *pflag.FlagSet) (map[string]string, error) {
	paths := map[string]string{}
	if flags == nil {
		return paths, nil
	}

	cb := func(f *pflag.Flag) (string, any) {
		if !f.Changed {
			return "", nil
		}
		key, ok := flagKeys[f.Name]
		if !ok {
			key = strings.ReplaceAll(f.Name, "-", "_")
		}
		if pathFlags[f.Name] {
			if abs := absPath(f.Value.String()); abs != "" {
				paths[key] = abs
			}
		}
		return key, posflag.FlagVal(flags, f)
	}
	if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, cb), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}
	return paths, nil
}

func absPath(p string) string {
	if p == "" || p == ":memory:" {
		return p
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey is the context key root.go stores the command logger under.
func LoggerKey() any {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context, or a discard
// logger when none was stored.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars substitutes ${VAR} references. Unset variables are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// expandTargetEnvVars expands the target fields that commonly carry secrets.
func expandTargetEnvVars(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Password = expandEnvVars(t.Password)
	t.User = expandEnvVars(t.User)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
}
