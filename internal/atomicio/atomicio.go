// Package atomicio implements the write-temp-then-rename discipline used
// for every externally visible write: a target never holds a partial
// file, and a crash leaves at worst a ".tmp" sibling that the next run
// can discard.
package atomicio

import (
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/NaughtyChas/GitMC/internal/coreerr"
)

const tmpSuffix = ".tmp"

// TempPath returns the temp file path used while writing target.
func TempPath(target string) string {
	return target + tmpSuffix
}

// WriteFile atomically replaces target's contents with data: it writes to
// target+".tmp", flushes, then renames over target. On
// platforms where os.Rename doesn't atomically replace an existing file,
// the target is removed first.
func WriteFile(target string, data []byte, perm os.FileMode) error {
	return Write(target, perm, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

// Write is the streaming form of WriteFile: fn is called with an open temp
// file to write arbitrary content to before the atomic rename.
func Write(target string, perm os.FileMode, fn func(f *os.File) error) (err error) {
	tmp := TempPath(target)
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return coreerr.New(coreerr.External, target, "cannot create temp file", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if err = fn(f); err != nil {
		return coreerr.New(coreerr.External, target, "cannot write temp file", err)
	}
	if err = f.Sync(); err != nil {
		return coreerr.New(coreerr.External, target, "cannot flush temp file", err)
	}
	if err = f.Close(); err != nil {
		return coreerr.New(coreerr.External, target, "cannot close temp file", err)
	}

	if err = rename(tmp, target); err != nil {
		return coreerr.New(coreerr.External, target, "cannot rename temp file into place", err)
	}
	fsyncDir(filepath.Dir(target))
	return nil
}

// rename renames oldpath to newpath, falling back to remove-then-rename on
// platforms (notably Windows) where os.Rename doesn't replace an existing
// file by default.
func rename(oldpath, newpath string) error {
	err := os.Rename(oldpath, newpath)
	if err == nil {
		return nil
	}
	if runtime.GOOS != "windows" {
		return err
	}
	if rmErr := os.Remove(newpath); rmErr != nil && !os.IsNotExist(rmErr) {
		return err
	}
	return os.Rename(oldpath, newpath)
}

// fsyncDir best-effort fsyncs a directory so the rename is durable across a
// crash.
// Directory fsync isn't supported on every platform; failures are ignored.
func fsyncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}

// Rename atomically replaces newpath's contents with oldpath's (renaming a
// file already built at a temp path into place), then best-effort fsyncs
// the destination directory. Used by callers that build a
// multi-write file (e.g. a recombined region) at a scratch path themselves
// rather than through Write/WriteFile's single-buffer form.
func Rename(oldpath, newpath string) error {
	if err := rename(oldpath, newpath); err != nil {
		return coreerr.New(coreerr.External, newpath, "cannot rename file into place", err)
	}
	fsyncDir(filepath.Dir(newpath))
	return nil
}

// CleanStaleTemp removes a leftover ".tmp" file for target, if any. A
// stale temp file is always safe to delete on next open.
func CleanStaleTemp(target string) error {
	err := os.Remove(TempPath(target))
	if err != nil && !os.IsNotExist(err) {
		return coreerr.New(coreerr.External, target, "cannot remove stale temp file", err)
	}
	return nil
}

// Copy streams src into an atomically-written target file.
func Copy(target string, src io.Reader, perm os.FileMode) error {
	return Write(target, perm, func(f *os.File) error {
		_, err := io.Copy(f, src)
		return err
	})
}
