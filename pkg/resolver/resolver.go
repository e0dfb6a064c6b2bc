package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/niels/staticd/pkg/httperror"
)

// Resolver maps decoded request paths to files beneath a single base
// directory. The base is canonicalized (absolute, symlinks resolved) once at
// construction; every resolved path must stay inside it.
type Resolver struct {
	base string
}

// Target is a successfully resolved, existing regular file.
type Target struct {
	Path string // canonical absolute path
	Size int64
}

// New canonicalizes baseDir and verifies it is an existing directory.
func New(baseDir string) (*Resolver, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving base directory: %w", err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing base directory: %w", err)
	}
	info, err := os.Stat(canon)
	if err != nil {
		return nil, fmt.Errorf("base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base directory %s is not a directory", canon)
	}
	return &Resolver{base: canon}, nil
}

// Base returns the canonical base directory.
func (r *Resolver) Base() string {
	return r.base
}

// Resolve joins rawPath onto the base directory and canonicalizes the
// result. Paths escaping the base fail with BadRequest; the lexical check
// runs before any filesystem access so a traversal probe never learns
// whether its target exists. A path that does not exist, or names a
// directory, fails with NotFound.
func (r *Resolver) Resolve(rawPath string) (*Target, error) {
	joined := filepath.Join(r.base, filepath.FromSlash(rawPath))
	if !r.contains(joined) {
		return nil, httperror.BadRequest
	}

	// Symlinks inside the tree may still point outside it, so the
	// containment check repeats after full canonicalization.
	canon, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, httperror.NotFound
		}
		return nil, fmt.Errorf("canonicalizing %s: %w", joined, err)
	}
	if !r.contains(canon) {
		return nil, httperror.BadRequest
	}

	info, err := os.Stat(canon)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, httperror.NotFound
		}
		return nil, fmt.Errorf("stat %s: %w", canon, err)
	}
	if info.IsDir() {
		return nil, httperror.NotFound
	}
	return &Target{Path: canon, Size: info.Size()}, nil
}

// contains reports whether path sits at or beneath the base directory. The
// separator suffix keeps a sibling like /base2 from passing for base /base.
func (r *Resolver) contains(path string) bool {
	return path == r.base || strings.HasPrefix(path, r.base+string(filepath.Separator))
}
