// Package fsutil provides file system utility functions.
package fsutil

import (
	"os"
	"path/filepath"
	"strings"
)

// FindLibraries lists the regular files ending with extension that sit
// exactly one directory below root, i.e. root/<group>/<file><extension>.
// Files directly in root and deeper files are ignored. Groups and files are
// visited in name order. A group that cannot be read is reported to onSkip,
// when non-nil, and skipped.
func FindLibraries(root, extension string, onSkip func(dir string, err error)) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	groups, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, group := range groups {
		if !group.IsDir() {
			continue
		}
		dir := filepath.Join(root, group.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			if onSkip != nil {
				onSkip(dir, err)
			}
			continue
		}
		for _, e := range entries {
			if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), extension) {
				continue
			}
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
