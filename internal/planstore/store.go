// Package planstore implements the Content Store: durable, atomic,
// project-partitioned persistence for review records. One JSON file per
// review; no database, no locking beyond what the process needs for its
// own concurrent goroutines (cross-process contention is explicitly not
// handled, per spec §9 — the interceptor guarantees at most one server
// per host).
package planstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/roasbeef/planreview/internal/review"
)

// legacyDir is the directory name reserved for un-partitioned records
// created before project-path partitioning existed, or created without
// a project path.
const legacyDir = "_global"

// projectsDir is the directory under which every partitioned project
// gets its own subdirectory.
const projectsDir = "projects"

// Store persists Review records as one JSON file per review under a
// root directory, following the queue and settings persistence idioms
// this codebase uses elsewhere for flat-file records (see DESIGN.md).
type Store struct {
	dataRoot string
}

// NewStore creates a Store rooted at dataRoot, creating the directory
// tree if it does not already exist.
func NewStore(dataRoot string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dataRoot, legacyDir), 0o700); err != nil {
		return nil, review.StoreErrorf("create data root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dataRoot, projectsDir), 0o700); err != nil {
		return nil, review.StoreErrorf("create projects dir: %w", err)
	}

	return &Store{dataRoot: dataRoot}, nil
}

// NewReviewID generates a random 128-bit review identifier, per spec §3.
func NewReviewID() string {
	return uuid.NewString()
}

// dirFor returns the directory a review with the given project path is
// persisted under.
func (s *Store) dirFor(projectPath string) string {
	if projectPath == "" {
		return filepath.Join(s.dataRoot, legacyDir)
	}
	return filepath.Join(s.dataRoot, projectsDir, EncodePath(projectPath))
}

// allProjectDirs lists every partitioned project directory plus the
// legacy global directory, used by Load's full-scan fallback.
func (s *Store) allProjectDirs() ([]string, error) {
	dirs := []string{filepath.Join(s.dataRoot, legacyDir)}

	root := filepath.Join(s.dataRoot, projectsDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return dirs, nil
		}
		return nil, review.StoreErrorf("list project dirs: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}

	return dirs, nil
}

// Save persists r atomically: marshal, write to a temp file in the
// target directory, then rename over the final path. The rename is
// atomic on the same filesystem, so a reader never observes a
// partially-written record.
func (s *Store) Save(r *review.Review) error {
	dir := s.dirFor(r.ProjectPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return review.StoreErrorf("create review dir: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return review.StoreErrorf("marshal review %s: %w", r.ID, err)
	}

	final := filepath.Join(dir, r.ID+".json")

	tmp, err := os.CreateTemp(dir, r.ID+".*.tmp")
	if err != nil {
		return review.StoreErrorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// Best-effort cleanup: if anything below fails before the rename,
	// remove the temp file rather than leaving it behind.
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return review.StoreErrorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return review.StoreErrorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return review.StoreErrorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		return review.StoreErrorf("rename into place: %w", err)
	}

	succeeded = true

	return nil
}

// readFile loads and unmarshals a single review record file, tolerating
// unknown extra fields (forward compatibility, per spec §6).
func readFile(path string) (*review.Review, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var r review.Review
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, review.StoreErrorf("decode %s: %w", path, err)
	}

	return &r, nil
}

// Load searches, in order, the explicit project directory, the global
// directory, and finally every known project directory, returning the
// first match. This mirrors spec §4.1's specified search order for
// legacy and cross-project lookups.
func (s *Store) Load(id, projectPath string) (fn.Option[*review.Review], error) {
	if projectPath != "" {
		path := filepath.Join(s.dirFor(projectPath), id+".json")
		r, err := readFile(path)
		if err == nil {
			return fn.Some(r), nil
		}
		if !os.IsNotExist(err) {
			return fn.None[*review.Review](), review.StoreErrorf(
				"load %s: %w", id, err,
			)
		}
	}

	globalPath := filepath.Join(s.dirFor(""), id+".json")
	if r, err := readFile(globalPath); err == nil {
		return fn.Some(r), nil
	} else if !os.IsNotExist(err) {
		return fn.None[*review.Review](), review.StoreErrorf(
			"load %s: %w", id, err,
		)
	}

	dirs, err := s.allProjectDirs()
	if err != nil {
		return fn.None[*review.Review](), err
	}

	for _, dir := range dirs {
		path := filepath.Join(dir, id+".json")
		r, err := readFile(path)
		if err == nil {
			return fn.Some(r), nil
		}
		if !os.IsNotExist(err) {
			return fn.None[*review.Review](), review.StoreErrorf(
				"load %s: %w", id, err,
			)
		}
	}

	return fn.None[*review.Review](), nil
}

// listDir loads every review record file directly inside dir.
func listDir(dir string) ([]*review.Review, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, review.StoreErrorf("read dir %s: %w", dir, err)
	}

	var (
		reviews []*review.Review
		modTime = make(map[string]int64, len(entries))
	)

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}

		info, err := e.Info()
		if err != nil {
			return nil, review.StoreErrorf("stat %s: %w", e.Name(), err)
		}

		r, err := readFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, review.StoreErrorf("read %s: %w", e.Name(), err)
		}

		reviews = append(reviews, r)
		modTime[r.ID] = info.ModTime().UnixNano()
	}

	sort.Slice(reviews, func(i, j int) bool {
		return modTime[reviews[i].ID] > modTime[reviews[j].ID]
	})

	return reviews, nil
}

// nonTerminal reports whether a review's status is not the terminal
// approved state.
func nonTerminal(r *review.Review) bool {
	return r.Status != review.StatusApproved
}

// ListPending enumerates every non-terminal review in a single project
// directory, most-recently-modified first.
func (s *Store) ListPending(projectPath string) ([]*review.Review, error) {
	all, err := listDir(s.dirFor(projectPath))
	if err != nil {
		return nil, err
	}

	var pending []*review.Review
	for _, r := range all {
		if nonTerminal(r) {
			pending = append(pending, r)
		}
	}

	return pending, nil
}

// Latest returns the single most-recently-modified record in a project
// directory, regardless of status.
func (s *Store) Latest(projectPath string) (fn.Option[*review.Review], error) {
	all, err := listDir(s.dirFor(projectPath))
	if err != nil {
		return fn.None[*review.Review](), err
	}
	if len(all) == 0 {
		return fn.None[*review.Review](), nil
	}

	return fn.Some(all[0]), nil
}

// String implements fmt.Stringer for debugging/log messages.
func (s *Store) String() string {
	return fmt.Sprintf("planstore.Store{dataRoot: %s}", s.dataRoot)
}
