// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package fsatomic writes files so a crash or power loss never leaves a
// reader looking at a half-written state.json, blocklist, or dnsmasq
// config: write to a temp file in the same directory, fsync the file,
// rename over the destination, then fsync the containing directory.
package fsatomic

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// WriteFile atomically replaces path with data, using perm for the new
// file's mode. The temp file is created in filepath.Dir(path) so the final
// rename is guaranteed to be on the same filesystem.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("fsatomic: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("fsatomic: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := writeAndSync(tmp, data, perm, tmpPath); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("fsatomic: rename: %w", err)
	}

	return syncDir(dir)
}

func writeAndSync(tmp *os.File, data []byte, perm os.FileMode, tmpPath string) error {
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("fsatomic: write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("fsatomic: chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("fsatomic: fsync temp file: %w", err)
	}
	return nil
}

// syncDir fsyncs the directory entry so the rename itself survives a crash,
// not just the file contents.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("fsatomic: open directory for fsync: %w", err)
	}
	defer d.Close()

	if err := unix.Fsync(int(d.Fd())); err != nil {
		return fmt.Errorf("fsatomic: fsync directory: %w", err)
	}
	return nil
}
