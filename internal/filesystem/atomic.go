// Package filesystem provides crash-safe file persistence for the document store.
package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteFileAtomic replaces target with data so that a reader never observes
// a partially written file. The new content is written and synced to
// <target>.tmp, the previous file is parked at <target>.bak, and the temp
// file is renamed into place. The backup is removed once the swap succeeds.
//
// If the process dies between parking the backup and the final rename,
// ReadFile recovers from the backup.
func WriteFileAtomic(target string, data []byte, perm os.FileMode) error {
	tmpPath := target + ".tmp"
	bakPath := target + ".bak"

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	if err := writeSynced(tmpPath, data, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}

	hadTarget := false
	if _, err := os.Stat(target); err == nil {
		if err := renameSafe(target, bakPath); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("backing up existing file: %w", err)
		}
		hadTarget = true
	}

	if err := renameSafe(tmpPath, target); err != nil {
		if hadTarget {
			_ = renameSafe(bakPath, target)
		}
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming temp to target: %w", err)
	}

	_ = os.Remove(bakPath)
	return nil
}

// ReadFile reads target, falling back to <target>.bak when the target is
// missing after an interrupted WriteFileAtomic. It returns an error wrapping
// fs.ErrNotExist when neither file exists.
func ReadFile(target string) ([]byte, error) {
	data, err := os.ReadFile(target) //nolint:gosec // G304: path comes from configuration
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	data, bakErr := os.ReadFile(target + ".bak") //nolint:gosec // G304: path comes from configuration
	if bakErr != nil {
		return nil, err
	}
	return data, nil
}

func writeSynced(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// renameSafe attempts os.Rename first, then falls back to copy+delete for
// cross-device moves.
func renameSafe(oldPath, newPath string) error {
	err := os.Rename(oldPath, newPath)
	if err == nil {
		return nil
	}
	if copyErr := copyFile(oldPath, newPath); copyErr != nil {
		return fmt.Errorf("copy fallback: %w (rename error: %w)", copyErr, err)
	}
	_ = os.Remove(oldPath)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304: src is from trusted internal path
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm()) //nolint:gosec // G304: dst is from trusted internal path
	if err != nil {
		return err
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return out.Close()
}
