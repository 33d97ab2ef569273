// Package fileops implements the atomic mutation primitives of §4.5:
// every destructive operation follows temp-file-then-rename, so a caller
// observing the filesystem after any operation returns never sees a
// half-written file and never sees a stray temp file.
package fileops

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/poolfs/pkg/physical"
	"github.com/cuemby/poolfs/pkg/poolerr"
)

const retryAttempts = 3
const retryBackoff = 100 * time.Millisecond

// TempPath returns the temp-file name used while finalPath is being
// written: finalPath with the engine's reserved temp suffix appended.
func TempPath(finalPath string) string {
	return finalPath + physical.TempSuffix
}

// EnsureDir creates dir (and parents) if it does not already exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return poolerr.Wrap(poolerr.Io, "EnsureDir", err)
	}
	return nil
}

// Delete removes path, clearing any read-only permission bit first so
// the unlink cannot fail on a file the engine itself marked read-only.
// An absent file is a no-op.
func Delete(path string) error {
	if info, err := os.Stat(path); err == nil {
		if info.Mode().Perm()&0o200 == 0 {
			_ = os.Chmod(path, info.Mode().Perm()|0o200)
		}
	} else if os.IsNotExist(err) {
		return nil
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		if os.IsPermission(err) {
			return poolerr.Wrap(poolerr.AccessDenied, "Delete", err)
		}
		return poolerr.Wrap(poolerr.Io, "Delete", err)
	}
	return nil
}

// copyContents streams src's bytes into dst, which must not yet exist.
func copyContents(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return poolerr.Wrap(poolerr.Io, "copyContents", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return poolerr.Wrap(poolerr.Io, "copyContents", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return poolerr.Wrap(poolerr.Io, "copyContents", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return poolerr.Wrap(poolerr.Io, "copyContents", err)
	}
	return nil
}

// CopyToTemp copies srcPath's contents to TempPath(dstFinal), ensuring
// dstFinal's directory exists first. The caller finishes the operation
// with Finalize, or cleans up the temp file on its own failure path.
func CopyToTemp(srcPath, dstFinal string) (tempPath string, err error) {
	if err := EnsureDir(filepath.Dir(dstFinal)); err != nil {
		return "", err
	}
	tempPath = TempPath(dstFinal)
	_ = os.Remove(tempPath) // clear any stale temp from a prior interrupted attempt
	if err := copyContents(srcPath, tempPath); err != nil {
		return "", err
	}
	return tempPath, nil
}

// Finalize renames tempPath to dstFinal, completing an atomic write.
func Finalize(tempPath, dstFinal string) error {
	if err := os.Rename(tempPath, dstFinal); err != nil {
		return poolerr.Wrap(poolerr.Io, "Finalize", err)
	}
	return nil
}

// AtomicCopy copies srcPath to dstFinal using temp-then-rename: on any
// failure no dstFinal and no stray temp file exist afterward.
func AtomicCopy(srcPath, dstFinal string) error {
	tempPath, err := CopyToTemp(srcPath, dstFinal)
	if err != nil {
		return err
	}
	if err := Finalize(tempPath, dstFinal); err != nil {
		_ = os.Remove(tempPath)
		return err
	}
	return nil
}

// AtomicWrite writes data to dstFinal using temp-then-rename, for
// callers constructing file content in memory (descriptor files) rather
// than copying an existing source file.
func AtomicWrite(dstFinal string, data []byte) error {
	if err := EnsureDir(filepath.Dir(dstFinal)); err != nil {
		return err
	}
	tempPath := TempPath(dstFinal)
	_ = os.Remove(tempPath)
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return poolerr.Wrap(poolerr.Io, "AtomicWrite", err)
	}
	if err := Finalize(tempPath, dstFinal); err != nil {
		_ = os.Remove(tempPath)
		return err
	}
	return nil
}

// RenameWithinVolume moves src to dst on the same volume via a plain
// rename — used by the SetPrimary/SetShadow state machines to swap a
// file between its primary and shadow location without a copy.
func RenameWithinVolume(src, dst string) error {
	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		return poolerr.Wrap(poolerr.Io, "RenameWithinVolume", err)
	}
	return nil
}

// MoveAcrossVolumes implements move_to_drive (§4.5): copy srcPath to
// dstFinal atomically, then delete srcPath. If deleting the source fails
// with access-denied, it retries deleting the just-created dstFinal
// (up to 3 times, 100ms apart) to avoid leaving two copies behind, then
// propagates the original deletion failure either way.
func MoveAcrossVolumes(srcPath, dstFinal string) error {
	if err := AtomicCopy(srcPath, dstFinal); err != nil {
		return err
	}
	deleteErr := Delete(srcPath)
	if deleteErr == nil {
		return nil
	}
	if poolerr.Is(deleteErr, poolerr.AccessDenied) {
		for i := 0; i < retryAttempts; i++ {
			time.Sleep(retryBackoff)
			if err := Delete(dstFinal); err == nil {
				break
			}
		}
	}
	return deleteErr
}
