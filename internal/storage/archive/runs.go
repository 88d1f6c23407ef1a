package archive

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/newthinker/frontier/internal/core"
)

// Artifact file names inside a run directory.
const (
	SummaryFile = "summary.json"
	TrialsFile  = "trials.csv"
	ChartFile   = "frontier.png"
	SMLFile     = "sml.json"
	SMLChart    = "sml.png"

	IndicatorsFile = "indicators.json"
)

// SymbolFile names a per-symbol artifact such as "BBVA.MC_price.png". Bytes
// that are unsafe in a path segment become underscores.
func SymbolFile(symbol, suffix string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '^', r == '=':
			return r
		}
		return '_'
	}, symbol)
	if strings.Trim(safe, ".") == "" {
		safe = "_" + safe
	}
	return safe + "_" + suffix
}

// Runs lays out run artifacts as runs/<yyyy>/<mm>/<run-id>/<file>.
type Runs struct {
	store Storage
}

// NewRuns wraps a backend.
func NewRuns(store Storage) *Runs {
	return &Runs{store: store}
}

// RunDir returns the directory of a run created at t.
func RunDir(id string, t time.Time) string {
	t = t.UTC()
	return path.Join("runs", fmt.Sprintf("%04d", t.Year()), fmt.Sprintf("%02d", int(t.Month())), id)
}

// ValidSegment reports whether s can be used as a single path segment: not
// empty, not a dot segment and free of separators.
func ValidSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// Save writes every non-empty artifact and returns the run directory.
func (r *Runs) Save(ctx context.Context, id string, createdAt time.Time, files map[string][]byte) (string, error) {
	if !ValidSegment(id) {
		return "", core.Errorf(core.ErrInvalidConfiguration, "invalid run id %q", id)
	}
	dir := RunDir(id, createdAt)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if len(files[name]) == 0 {
			continue
		}
		if err := r.store.Write(ctx, path.Join(dir, name), files[name]); err != nil {
			return "", fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return dir, nil
}

// Load reads one artifact of a run.
func (r *Runs) Load(ctx context.Context, id string, createdAt time.Time, name string) ([]byte, error) {
	if !ValidSegment(id) || !ValidSegment(name) {
		return nil, core.Errorf(core.ErrInvalidRequest, "invalid run path %q/%q", id, name)
	}
	return r.store.Read(ctx, path.Join(RunDir(id, createdAt), name))
}

// Files lists the artifact names of one run, sorted. A run that was never
// archived has no files.
func (r *Runs) Files(ctx context.Context, id string, createdAt time.Time) ([]string, error) {
	if !ValidSegment(id) {
		return nil, core.Errorf(core.ErrInvalidRequest, "invalid run id %q", id)
	}
	dir := RunDir(id, createdAt)
	paths, err := r.store.List(ctx, dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, p := range paths {
		name, ok := strings.CutPrefix(p, dir+"/")
		if !ok || name == "" || strings.Contains(name, "/") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// List returns the run ids archived in the given month, sorted.
func (r *Runs) List(ctx context.Context, year int, month time.Month) ([]string, error) {
	prefix := path.Join("runs", fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", int(month)))
	paths, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, p := range paths {
		rel := strings.TrimPrefix(strings.TrimPrefix(p, prefix), "/")
		id, _, ok := strings.Cut(rel, "/")
		if !ok {
			continue
		}
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
