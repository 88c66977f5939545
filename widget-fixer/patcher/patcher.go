// Package patcher applies the widget fixes: literal string replacements on a
// known set of files, each preceded by a backup of the original, plus a
// read-only check that required strings are present.
package patcher // import "github.com/sinnahq/sinna/tools/widget-fixer/patcher"

import (
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sinnahq/sinna/tools/logger"
	"github.com/sinnahq/sinna/tools/utils"
	"github.com/spf13/afero"
)

// Patcher applies fixes to files below Root.
type Patcher struct {
	Fs   afero.Fs
	Root string
	// BackupSuffix is appended to a target's path to name its backup.
	BackupSuffix string
	// OnlyIfChanged skips the backup and the write when none of the
	// replacements occur in the file.
	OnlyIfChanged bool
}

// PatchResult describes the outcome of ApplyReplacements.
type PatchResult struct {
	Path       string
	BackupPath string
	// Occurrences holds, for each replacement, how many times Old was found.
	Occurrences []int
	Changed     bool
}

// Check is the outcome of looking for one required string.
type Check struct {
	Needle  string
	Present bool
}

// VerifyResult describes the outcome of Verify.
type VerifyResult struct {
	Path   string
	Checks []Check
}

// Passed returns true if every required string was found.
func (r *VerifyResult) Passed() bool {
	return len(r.Missing()) == 0
}

// Missing returns the required strings that were not found.
func (r *VerifyResult) Missing() []string {
	var missing []string
	for _, c := range r.Checks {
		if !c.Present {
			missing = append(missing, c.Needle)
		}
	}
	return missing
}

// New returns a Patcher for the project at root.
func New(fs afero.Fs, root, backupSuffix string) *Patcher {
	return &Patcher{Fs: fs, Root: root, BackupSuffix: backupSuffix}
}

// Path returns the absolute path of a target given relative to the root.
func (p *Patcher) Path(rel string) string {
	return filepath.Join(p.Root, filepath.FromSlash(rel))
}

// BackupPath returns where the backup of the target rel is written.
func (p *Patcher) BackupPath(rel string) string {
	return p.Path(rel) + p.BackupSuffix
}

// ApplyReplacements backs up the target rel and then rewrites it with every
// replacement applied, in order. The backup is always written before the
// original is touched. Replacements whose Old string is absent are no-ops.
func (p *Patcher) ApplyReplacements(rel string, replacements []Replacement) (*PatchResult, error) {
	path := p.Path(rel)
	result := &PatchResult{Path: path}

	original, err := afero.ReadFile(p.Fs, path)
	if err != nil {
		return nil, utils.MakeError("could not read %s: %w", path, err)
	}

	content := string(original)
	for _, r := range replacements {
		n := 0
		if r.Old != "" {
			n = strings.Count(content, r.Old)
			content = strings.ReplaceAll(content, r.Old, r.New)
		}
		result.Occurrences = append(result.Occurrences, n)
	}
	result.Changed = content != string(original)

	if p.OnlyIfChanged && !result.Changed {
		return result, nil
	}

	mode := utils.FileMode(p.Fs, path)
	result.BackupPath = p.BackupPath(rel)
	if err := utils.WriteFileAtomic(p.Fs, result.BackupPath, original, mode); err != nil {
		return nil, utils.MakeError("could not back up %s: %w", path, err)
	}

	if err := utils.WriteFileAtomic(p.Fs, path, []byte(content), mode); err != nil {
		return nil, utils.MakeError("could not write %s (the original is in %s): %w", path, result.BackupPath, err)
	}

	return result, nil
}

// Verify reports, for each required string, whether the target rel contains
// it. The file is never modified.
func (p *Patcher) Verify(rel string, required []string) (*VerifyResult, error) {
	path := p.Path(rel)

	content, err := afero.ReadFile(p.Fs, path)
	if err != nil {
		return nil, utils.MakeError("could not read %s: %w", path, err)
	}

	result := &VerifyResult{Path: path}
	for _, needle := range required {
		result.Checks = append(result.Checks, Check{
			Needle:  needle,
			Present: strings.Contains(string(content), needle),
		})
	}
	return result, nil
}

// Run applies every fix independently. A missing target or a failed
// verification is recorded in the report as a warning and does not stop the
// remaining fixes. I/O errors are also recorded per fix, and are returned
// together once every fix has been attempted.
func (p *Patcher) Run(fixes []Fix) (*Report, error) {
	report := &Report{Root: p.Root}
	var errs *multierror.Error

	for _, fix := range fixes {
		outcome := p.runFix(fix)
		if outcome.Err != nil {
			errs = multierror.Append(errs, outcome.Err)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	return report, errs.ErrorOrNil()
}

func (p *Patcher) runFix(fix Fix) Outcome {
	outcome := Outcome{Fix: fix}
	path := p.Path(fix.Path)

	exists, err := utils.FileExists(p.Fs, path)
	if err != nil {
		outcome.Status, outcome.Err = StatusFailed, err
		return outcome
	}
	if !exists {
		logger.Warningf("%s not found, skipping the %s fix", path, strings.ToLower(fix.Name))
		outcome.Status = StatusMissing
		return outcome
	}

	if fix.IsVerification() {
		logger.Infof("Verifying %s in %s", strings.ToLower(fix.Name), path)
		outcome.Verify, err = p.Verify(fix.Path, fix.Required)
		switch {
		case err != nil:
			outcome.Status, outcome.Err = StatusFailed, err
		case outcome.Verify.Passed():
			outcome.Status = StatusVerified
		default:
			logger.Warningf("%s may be missing from %s: %s", fix.Name, path, utils.PrintSlice(outcome.Verify.Missing(), len(fix.Required)))
			outcome.Status = StatusShortfall
		}
		return outcome
	}

	logger.Infof("Applying the %s fix to %s", strings.ToLower(fix.Name), path)
	outcome.Patch, err = p.ApplyReplacements(fix.Path, fix.Replacements)
	switch {
	case err != nil:
		outcome.Status, outcome.Err = StatusFailed, err
	case outcome.Patch.BackupPath == "":
		outcome.Status = StatusUpToDate
	default:
		outcome.Status = StatusApplied
	}
	return outcome
}
