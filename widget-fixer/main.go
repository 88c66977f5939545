// widget-fixer finds the SINNA1.0 project and applies the widget fixes: the
// header text, the demo page's script paths, and a check that the developer
// controls are present. Every file is backed up before it is rewritten.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sinnahq/sinna/tools/config"
	"github.com/sinnahq/sinna/tools/logger"
	"github.com/sinnahq/sinna/tools/metadata"
	"github.com/sinnahq/sinna/tools/utils"
	"github.com/sinnahq/sinna/tools/widget-fixer/locator"
	"github.com/sinnahq/sinna/tools/widget-fixer/patcher"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the tool and returns its exit code.
func run(args []string, stdout, stderr io.Writer) int {
	defer logger.Sync()

	cfg, err := config.LoadFixer(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, utils.ColorRed(err.Error()))
		return 2
	}

	logger.UseProdLogging(cfg.ProdLogging)
	logger.AddSentryTags(map[string]string{"tool": "widget-fixer"})
	logger.AddLogzioFields(map[string]string{"tool": "widget-fixer", "commit": metadata.GetGitCommit()})

	fmt.Fprintln(stdout, "🔧 Applying widget fixes...")
	fmt.Fprintln(stdout)

	root, err := newLocator(cfg).Find()
	if err != nil {
		logger.Warning(err)
		fmt.Fprintln(stderr, utils.ColorRed("❌ Could not find widget files"))
		fmt.Fprintln(stderr, "Please run this from your SINNA1.0 directory, or pass -root")
		return 1
	}
	fmt.Fprintf(stdout, "📁 Project root: %s\n\n", root)

	p := patcher.New(utils.Fs, root, cfg.BackupSuffix)
	fixes := patcher.DefaultFixes()

	if cfg.Watch {
		return watch(p, fixes, cfg, stdout, stderr)
	}

	report, err := p.Run(fixes)
	report.Print(stdout)
	logger.Infow("Widget fixes finished", "root", root,
		"applied", report.Count(patcher.StatusApplied),
		"missing", report.Count(patcher.StatusMissing),
		"shortfalls", report.Count(patcher.StatusShortfall),
		"failed", report.Count(patcher.StatusFailed))
	if err != nil {
		logger.Errorf("Failed to apply widget fixes: %s", err)
		fmt.Fprintln(stderr, utils.ColorRed("❌ Some fixes could not be applied. Originals are kept in the backup files."))
		return 1
	}

	printNextSteps(stdout, cfg.BackupSuffix)
	return 0
}

// newLocator returns a locator restricted to the configured root if there is
// one, or searching the default locations otherwise.
func newLocator(cfg *config.FixerConfig) *locator.Locator {
	if cfg.Root != "" {
		return &locator.Locator{
			Fs:         utils.Fs,
			Candidates: []string{cfg.Root},
			Sentinel:   cfg.Sentinel,
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		logger.Warningf("Could not get the working directory: %s", err)
	}
	return locator.Default(utils.Fs, cwd, cfg.Sentinel, cfg.MaxDepth, cfg.SearchRoots...)
}

func watch(p *patcher.Patcher, fixes []patcher.Fix, cfg *config.FixerConfig, stdout, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	w := &patcher.Watcher{
		Patcher:  p,
		Fixes:    fixes,
		Debounce: cfg.Debounce,
		OnReport: func(report *patcher.Report, err error) {
			report.Print(stdout)
			if err != nil {
				logger.Errorf("Failed to apply widget fixes: %s", err)
			}
		},
	}

	logger.Infof("Watching the widget files under %s. Press Ctrl-C to stop.", p.Root)
	if err := w.Run(ctx); err != nil {
		logger.Error(err)
		fmt.Fprintln(stderr, utils.ColorRed(err.Error()))
		return 1
	}
	return 0
}

func printNextSteps(w io.Writer, backupSuffix string) {
	fmt.Fprintln(w, utils.ColorGreen("✅ Fixes applied!"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "📝 Backup files created with %s extension\n", backupSuffix)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "🚀 Next steps:")
	fmt.Fprintln(w, "   1. cd widget")
	fmt.Fprintln(w, "   2. npm run build")
	fmt.Fprintln(w, "   3. npm run preview")
}
