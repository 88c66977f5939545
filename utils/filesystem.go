package utils // import "github.com/sinnahq/sinna/tools/utils"

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/lithammer/shortuuid/v3"
	"github.com/spf13/afero"
)

// Fs is the filesystem every package in this module reads from and writes
// to. Tests swap it for an in-memory filesystem with SetFs.
var Fs afero.Fs = afero.NewOsFs()

// SetFs replaces the filesystem used by the module.
func SetFs(fs afero.Fs) {
	Fs = fs
}

// FileExists returns true if path exists on fs and is a regular file (not a
// directory). Any error other than "does not exist" is returned to the caller.
func FileExists(fs afero.Fs, path string) (bool, error) {
	info, err := fs.Stat(path)
	if err == nil {
		return !info.IsDir(), nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, MakeError("could not stat %s: %w", path, err)
}

// DirExists is like FileExists, but for directories.
func DirExists(fs afero.Fs, path string) bool {
	ok, err := afero.DirExists(fs, path)
	return err == nil && ok
}

// WriteFileAtomic writes data to a temporary file in the same directory as
// path and renames it over path, so readers never observe a half-written
// file. The temporary file is removed if anything fails before the rename.
func WriteFileAtomic(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	dir, name := filepath.Split(path)
	tmpPath := filepath.Join(dir, TempFileName(name))

	if err := afero.WriteFile(fs, tmpPath, data, perm); err != nil {
		_ = fs.Remove(tmpPath)
		return MakeError("could not write temporary file %s: %w", tmpPath, err)
	}

	if err := fs.Rename(tmpPath, path); err != nil {
		_ = fs.Remove(tmpPath)
		return MakeError("could not rename %s to %s: %w", tmpPath, path, err)
	}

	return nil
}

// TempFileName returns the hidden name used for in-flight writes of name.
func TempFileName(name string) string {
	return Sprintf(".%s.%s%s", name, shortuuid.New(), TempFileSuffix)
}

// TempFileSuffix is the suffix of every file created by WriteFileAtomic.
const TempFileSuffix = ".tmp"

// FileMode returns the permission bits of path, falling back to 0644 if the
// file cannot be inspected.
func FileMode(fs afero.Fs, path string) os.FileMode {
	info, err := fs.Stat(path)
	if err != nil {
		return 0644
	}
	return info.Mode().Perm()
}
