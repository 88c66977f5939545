package patcher

import (
	"fmt"
	"io"
)

// Status is the outcome of a single fix.
type Status int

// Statuses of a fix. Only StatusFailed makes a run unsuccessful.
const (
	// StatusApplied means the target was backed up and rewritten.
	StatusApplied Status = iota
	// StatusUpToDate means nothing needed replacing and the target was left
	// alone. Only reported when Patcher.OnlyIfChanged is set.
	StatusUpToDate
	// StatusVerified means every required string is present.
	StatusVerified
	// StatusShortfall means some required strings are missing.
	StatusShortfall
	// StatusMissing means the target file does not exist.
	StatusMissing
	// StatusFailed means an I/O error stopped the fix.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusUpToDate:
		return "up to date"
	case StatusVerified:
		return "verified"
	case StatusShortfall:
		return "shortfall"
	case StatusMissing:
		return "missing"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome records what happened to one fix.
type Outcome struct {
	Fix    Fix
	Status Status
	Patch  *PatchResult
	Verify *VerifyResult
	Err    error
}

// Report collects the outcomes of a run, in the order the fixes were given.
type Report struct {
	Root     string
	Outcomes []Outcome
}

// Count returns how many fixes ended with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Outcome returns the outcome of the fix on the target path, if any.
func (r *Report) Outcome(path string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Fix.Path == path {
			return o, true
		}
	}
	return Outcome{}, false
}

// Print writes the operator-facing summary of the run to w.
func (r *Report) Print(w io.Writer) {
	for i, o := range r.Outcomes {
		fmt.Fprintf(w, "Fix %d: %s (%s)\n", i+1, o.Fix.Name, o.Fix.Path)

		switch o.Status {
		case StatusApplied:
			fmt.Fprintf(w, "  ✓ Updated (backup: %s)\n", o.Patch.BackupPath)
			for j, repl := range o.Fix.Replacements {
				fmt.Fprintf(w, "      %q -> %q: %d replaced\n", repl.Old, repl.New, o.Patch.Occurrences[j])
			}
		case StatusUpToDate:
			fmt.Fprintln(w, "  ✓ Already up to date")
		case StatusVerified, StatusShortfall:
			for _, c := range o.Verify.Checks {
				if c.Present {
					fmt.Fprintf(w, "  ✓ Found %s\n", c.Needle)
				} else {
					fmt.Fprintf(w, "  ⚠ Missing %s\n", c.Needle)
				}
			}
		case StatusMissing:
			fmt.Fprintf(w, "  ⚠ %s not found\n", o.Fix.Path)
		case StatusFailed:
			fmt.Fprintf(w, "  ✗ %s\n", o.Err)
		}
		fmt.Fprintln(w)
	}
}
