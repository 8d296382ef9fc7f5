// Package manifest packages trained-model artefacts into a hashed, schema-checked manifest.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"football-feature-lab/internal/domain"
	"football-feature-lab/internal/idhash"
)

// Errors returned by manifest building.
var (
	ErrNoModels        = errors.New("at least one model entry is required")
	ErrInvalidResource = errors.New("invalid resource")
	ErrInvalidManifest = errors.New("manifest does not match schema")
)

// Local path modes.
const (
	LocalPathRelative = "relative"
	LocalPathAbsolute = "absolute"
)

// ResourceSpec names one artefact file.
type ResourceSpec struct {
	ID     string
	Path   string // absolute path
	Format string
	View   string
}

// ParseResource parses "name=path[:format]". The format suffix is only split off when
// allowFormat is set. The path is made absolute.
func ParseResource(entry string, allowFormat bool) (ResourceSpec, error) {
	name, remainder, ok := strings.Cut(entry, "=")
	if !ok {
		return ResourceSpec{}, fmt.Errorf("%w: entry must match name=path[:format], got %q", ErrInvalidResource, entry)
	}
	var format string
	if allowFormat {
		if i := strings.LastIndex(remainder, ":"); i >= 0 {
			remainder, format = remainder[:i], remainder[i+1:]
		}
	}
	name = strings.TrimSpace(name)
	if name == "" || remainder == "" {
		return ResourceSpec{}, fmt.Errorf("%w: empty name or path in %q", ErrInvalidResource, entry)
	}
	path, err := filepath.Abs(expandHome(remainder))
	if err != nil {
		return ResourceSpec{}, fmt.Errorf("%w: %v", ErrInvalidResource, err)
	}
	return ResourceSpec{ID: name, Path: path, Format: format}, nil
}

// ParseResources parses a list of entries.
func ParseResources(entries []string, allowFormat bool) ([]ResourceSpec, error) {
	out := make([]ResourceSpec, 0, len(entries))
	for _, e := range entries {
		spec, err := ParseResource(e, allowFormat)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// entryOptions control how a spec renders as a manifest entry.
type entryOptions struct {
	baseURL        string
	localRoot      string
	preferRelative bool
}

// toEntry hashes the file and renders its manifest entry.
func (s ResourceSpec) toEntry(opts entryOptions) (domain.ManifestEntry, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return domain.ManifestEntry{}, fmt.Errorf("%w: %s path does not exist: %s", ErrInvalidResource, s.ID, s.Path)
	}
	if info.IsDir() {
		return domain.ManifestEntry{}, fmt.Errorf("%w: %s path must be a file, got directory: %s", ErrInvalidResource, s.ID, s.Path)
	}

	sum, size, err := idhash.FileSHA256(s.Path)
	if err != nil {
		return domain.ManifestEntry{}, err
	}

	e := domain.ManifestEntry{
		ID:        s.ID,
		Path:      s.Path,
		LocalPath: s.localPath(opts.localRoot, opts.preferRelative),
		SHA256:    sum,
		SizeBytes: size,
		Format:    s.Format,
		View:      s.View,
	}
	if opts.baseURL != "" {
		e.URI = strings.TrimRight(opts.baseURL, "/") + "/" + filepath.Base(s.Path)
	}
	return e, nil
}

// localPath is relative to root when the file lives under it and relative mode is on.
func (s ResourceSpec) localPath(root string, preferRelative bool) string {
	if root == "" || !preferRelative {
		return s.Path
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return s.Path
	}
	rel, err := filepath.Rel(absRoot, s.Path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return s.Path
	}
	return filepath.ToSlash(rel)
}
