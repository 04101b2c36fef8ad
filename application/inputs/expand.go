// Package inputs turns caller-supplied paths into the list of media files a
// batch will process.
package inputs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	pkgerrors "github.com/Skryldev/voiceprep/pkg/errors"
)

// SupportedExtensions are picked up when a directory is expanded. Explicit
// file arguments are not filtered; the engine decides what it can decode.
var SupportedExtensions = []string{
	".mp3", ".wav", ".flac", ".ogg", ".m4a", ".aac", ".wma",
	".opus", ".webm", ".mp4", ".mkv", ".avi", ".mov",
}

var supported = func() map[string]bool {
	m := make(map[string]bool, len(SupportedExtensions))
	for _, ext := range SupportedExtensions {
		m[ext] = true
	}
	return m
}()

// IsSupported reports whether path has a supported media extension.
func IsSupported(path string) bool {
	return supported[strings.ToLower(filepath.Ext(path))]
}

// Expand resolves paths to absolute media files. Directories contribute
// their supported files (not recursive, sorted by name). Duplicates are
// dropped, keeping first appearance. A path that does not exist fails the
// whole expansion with INPUT_NOT_FOUND.
func Expand(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, pkgerrors.NewInputNotFound(p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, pkgerrors.NewInputNotFound(p, err)
		}

		if !info.IsDir() {
			add(abs)
			continue
		}

		files, err := scanDir(abs)
		if err != nil {
			return nil, pkgerrors.NewInputNotFound(p, err)
		}
		for _, f := range files {
			add(f)
		}
	}
	return out, nil
}

func scanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsSupported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
