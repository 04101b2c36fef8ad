package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// ExistsFunc reports whether a path is already present on disk.
type ExistsFunc func(path string) bool

// CollisionResolver hands out output paths that clobber nothing: not another
// job's output in the same batch, not any batch input, and not a file that
// already exists. Taken names get a numeric suffix (_2, _3, ...) so results
// depend only on the order Resolve is called in. All methods are
// goroutine-safe.
//
// Paths are compared case-insensitively so names that would collide on
// case-insensitive filesystems are also kept apart.
type CollisionResolver struct {
	mu      sync.Mutex
	claimed map[string]bool // folded output paths handed out so far
	inputs  map[string]bool // folded input paths
	exists  ExistsFunc
}

// NewCollisionResolver creates a resolver that protects inputs and
// consults exists for files outside the batch. A nil exists only checks
// in-batch claims.
func NewCollisionResolver(inputs []string, exists ExistsFunc) *CollisionResolver {
	cr := &CollisionResolver{
		claimed: make(map[string]bool),
		inputs:  make(map[string]bool, len(inputs)),
		exists:  exists,
	}
	for _, in := range inputs {
		cr.inputs[fold(in)] = true
	}
	return cr
}

// Resolve claims an output path for requested and reports whether it had to
// be renamed. Every call is a new claim, so an input listed twice gets two
// distinct outputs.
func (cr *CollisionResolver) Resolve(requested string) (string, bool) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.free(requested) {
		cr.claimed[fold(requested)] = true
		return requested, false
	}

	dir := filepath.Dir(requested)
	base := filepath.Base(requested)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for n := 2; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		if cr.free(candidate) {
			cr.claimed[fold(candidate)] = true
			return candidate, true
		}
	}
}

func (cr *CollisionResolver) free(candidate string) bool {
	key := fold(candidate)
	if cr.claimed[key] || cr.inputs[key] {
		return false
	}
	if cr.exists != nil && cr.exists(candidate) {
		return false
	}
	return true
}

func fold(p string) string {
	return strings.ToLower(filepath.Clean(p))
}
