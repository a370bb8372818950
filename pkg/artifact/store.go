package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/CS-UWC/OralSmart-sub001/pkg/common/logger"
	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/preprocess"
)

const (
	currentFile    = "CURRENT"
	classifierFile = "classifier.json"
	scalerFile     = "scaler.json"
	retained       = 2
)

// removeAll is swapped in tests.
var removeAll = os.RemoveAll

type scalerDoc struct {
	ID       uuid.UUID         `json:"id"`
	Features []string          `json:"features"`
	Scaler   preprocess.Scaler `json:"scaler"`
}

// Store keeps artifacts on disk as <dir>/<id>/{classifier,scaler}.json.
// The CURRENT file names the published artifact and is replaced by rename,
// so readers see either the old or the new artifact, never a mix.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save writes the artifact and publishes it. On any error the previously
// published artifact stays current.
func (s *Store) Save(a *Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	id := a.ID.String()
	dir := filepath.Join(s.dir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	scaler := scalerDoc{ID: a.ID, Features: a.Features, Scaler: a.Scaler}
	if err := writeJSON(filepath.Join(dir, scalerFile), scaler); err != nil {
		return fmt.Errorf("write scaler: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, classifierFile), a); err != nil {
		return fmt.Errorf("write classifier: %w", err)
	}
	if err := writeFile(filepath.Join(s.dir, currentFile), []byte(id+"\n")); err != nil {
		return fmt.Errorf("publish artifact: %w", err)
	}
	// the new artifact is live; old directories are only housekeeping
	if err := s.prune(id); err != nil {
		logger.WithField("artifact_id", id).WithError(err).Warn("failed to prune old artifacts")
	}
	return nil
}

// Load reads the published artifact.
func (s *Store) Load() (*Artifact, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, currentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	id, err := uuid.Parse(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: current pointer: %v", ErrCorrupt, err)
	}
	return s.LoadID(id)
}

// LoadID reads one stored artifact, published or not.
func (s *Store) LoadID(id uuid.UUID) (*Artifact, error) {
	dir := filepath.Join(s.dir, id.String())
	var a Artifact
	if err := readJSON(filepath.Join(dir, classifierFile), &a); err != nil {
		return nil, err
	}
	var sc scalerDoc
	if err := readJSON(filepath.Join(dir, scalerFile), &sc); err != nil {
		return nil, err
	}
	if a.ID != id || sc.ID != id {
		return nil, fmt.Errorf("%w: id mismatch between classifier %s and scaler %s", ErrCorrupt, a.ID, sc.ID)
	}
	if strings.Join(sc.Features, ",") != strings.Join(a.Features, ",") {
		return nil, fmt.Errorf("%w: scaler features differ from classifier features", ErrCorrupt)
	}
	a.Scaler = sc.Scaler
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// prune removes artifact directories beyond the newest few, never the
// current one.
func (s *Store) prune(current string) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	type dated struct {
		name string
		mod  int64
	}
	var dirs []dated
	for _, e := range entries {
		if !e.IsDir() || e.Name() == current {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, dated{name: e.Name(), mod: info.ModTime().UnixNano()})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mod > dirs[j].mod })
	for i := retained - 1; i < len(dirs); i++ {
		if err := removeAll(filepath.Join(s.dir, dirs[i].name)); err != nil {
			return err
		}
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, payload)
}

// writeFile replaces path by renaming a synced temp file from the same
// directory.
func writeFile(path string, payload []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
