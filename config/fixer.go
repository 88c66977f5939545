package config

import (
	"io"
	"time"

	"github.com/knadh/koanf"
	"github.com/sinnahq/sinna/tools/utils"
)

// Defaults for the widget fixer.
const (
	DefaultSentinel     = "widget/src/SinnaPresetBase.js"
	DefaultMaxDepth     = 6
	DefaultBackupSuffix = ".bak"
	DefaultDebounce     = 250 * time.Millisecond
)

// FixerConfig holds the settings of the widget fixer.
type FixerConfig struct {
	// Root, when set, is the only candidate checked for the sentinel file.
	Root string
	// Sentinel is the path, relative to a candidate root, whose presence
	// marks the project root.
	Sentinel string
	// SearchRoots are searched recursively after the default ones.
	SearchRoots []string
	// MaxDepth bounds the recursive search below each search root.
	MaxDepth int
	// BackupSuffix is appended to a target's path to name its backup.
	BackupSuffix string

	Watch       bool
	Debounce    time.Duration
	ProdLogging bool
}

var fixerEnv = map[string]string{
	"SINNA_PROJECT_ROOT": "project.root",
	"SINNA_SENTINEL":     "project.sentinel",
}

// LoadFixer builds the widget fixer configuration from args (without the
// program name), the environment and the optional TOML file named by
// -config. Usage and flag errors are printed to output.
func LoadFixer(args []string, output io.Writer) (*FixerConfig, error) {
	f := newFlagSet("widget-fixer", output)
	f.String("config", "", "Path to a TOML config file with [project] and [patch] sections.")
	f.String("root", "", "Project root to use instead of searching for one. Overrides $SINNA_PROJECT_ROOT.")
	f.String("search", "", "Comma separated list of extra directories to search for the project.")
	f.String("sentinel", "", "Path, relative to the project root, of the file that marks the root.")
	f.Int("maxdepth", 0, "How many directory levels below each search directory to look at.")
	f.Bool("watch", false, "Keep running and re-apply the fixes whenever a target file changes.")
	f.Duration("debounce", DefaultDebounce, "How long to wait for more file events before re-applying fixes in watch mode.")
	f.Bool("prodlogging", false, `If the tool sends logs to Logz.io and reports errors to Sentry. If this option is passed
the SENTRY_DSN and LOGZIO_SHIPPING_TOKEN env vars must be defined.`)

	fk, err := loadFlags(f, args)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	err = loadDefaults(k, map[string]interface{}{
		"project.sentinel":   DefaultSentinel,
		"project.maxdepth":   DefaultMaxDepth,
		"patch.backupsuffix": DefaultBackupSuffix,
	})
	if err != nil {
		return nil, err
	}
	if err := loadFile(k, fk.String("config")); err != nil {
		return nil, err
	}
	if err := loadEnv(k, fixerEnv); err != nil {
		return nil, err
	}

	cfg := &FixerConfig{
		Root:         firstNonEmpty(fk.String("root"), k.String("project.root")),
		Sentinel:     firstNonEmpty(fk.String("sentinel"), k.String("project.sentinel")),
		MaxDepth:     k.Int("project.maxdepth"),
		BackupSuffix: k.String("patch.backupsuffix"),
		Watch:        fk.Bool("watch"),
		Debounce:     fk.Duration("debounce"),
		ProdLogging:  fk.Bool("prodlogging"),
	}
	for _, root := range append(k.Strings("project.search"), splitList(fk.String("search"))...) {
		if !utils.StringSliceContains(cfg.SearchRoots, root) {
			cfg.SearchRoots = append(cfg.SearchRoots, root)
		}
	}
	if depth := fk.Int("maxdepth"); depth > 0 {
		cfg.MaxDepth = depth
	}
	if cfg.BackupSuffix == "" {
		cfg.BackupSuffix = DefaultBackupSuffix
	}

	return cfg, nil
}
