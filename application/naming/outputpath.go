// Package naming derives non-destructive output paths for processed files
// and resolves collisions between them.
package naming

import (
	"path/filepath"
	"strings"

	"github.com/Skryldev/voiceprep/domain/model"
	pkgerrors "github.com/Skryldev/voiceprep/pkg/errors"
)

// Suffix is appended to the input stem.
const Suffix = "_processed"

// OutputExt is the extension of every processed file.
const OutputExt = ".mp3"

// DerivePath builds <dir>/<stem>_processed.mp3 for input, where dir is the
// input's own directory or the policy folder.
//
//	/rec/interview.wav, beside        -> /rec/interview_processed.mp3
//	/rec/interview.wav, folder /out   -> /out/interview_processed.mp3
func DerivePath(input string, policy model.OutputPolicy) (string, error) {
	abs, err := filepath.Abs(input)
	if err != nil {
		return "", pkgerrors.NewValidationError("input", input, err.Error())
	}

	dir := filepath.Dir(abs)
	if policy.Mode == model.OutputFolder {
		if policy.Folder == "" {
			return "", pkgerrors.NewValidationError("policy.folder", "", "output folder must not be empty")
		}
		dir, err = filepath.Abs(policy.Folder)
		if err != nil {
			return "", pkgerrors.NewValidationError("policy.folder", policy.Folder, err.Error())
		}
	}

	base := filepath.Base(abs)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return filepath.Join(dir, stem+Suffix+OutputExt), nil
}

// IsProcessedName reports whether path looks like one of our outputs.
func IsProcessedName(path string) bool {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if !strings.EqualFold(filepath.Ext(base), OutputExt) {
		return false
	}
	if strings.HasSuffix(stem, Suffix) {
		return true
	}
	// <stem>_processed_N
	i := strings.LastIndex(stem, Suffix+"_")
	if i < 0 {
		return false
	}
	n := stem[i+len(Suffix)+1:]
	if n == "" {
		return false
	}
	for _, c := range n {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
