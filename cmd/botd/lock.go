package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nightlyone/lockfile"
)

// lockDataDir keeps a second daemon from appending to the same logs and
// index. The returned func releases the lock.
func lockDataDir(dir string) (func(), error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	lf, err := lockfile.New(filepath.Join(abs, "botd.lock"))
	if err != nil {
		return nil, err
	}
	if err := lf.TryLock(); err != nil {
		return nil, fmt.Errorf("%s is in use: %w", abs, err)
	}
	return func() { _ = lf.Unlock() }, nil
}
