package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mlorenz/drawbridge/pkg/errors"
)

// FileStore keeps all records in one JSON file, read and rewritten
// whole on every mutation. Fine at CLI scale; a workspace tracks tens
// of diagrams, not thousands.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// stateFile is the on-disk document.
type stateFile struct {
	Diagrams map[string]*Record `json:"diagrams"`
}

// NewFileStore creates a store backed by the given JSON file. The file
// is created lazily on first Put.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New(errors.ErrCodeInvalidPath, "state file path is empty")
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Get(ctx context.Context, localPath string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := doc.Diagrams[NormalizePath(localPath)]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (s *FileStore) Put(ctx context.Context, rec *Record) error {
	if rec.LocalPath == "" {
		return errors.New(errors.ErrCodeInvalidInput, "record has no local path")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	key := NormalizePath(rec.LocalPath)
	rec.LocalPath = key
	doc.Diagrams[key] = rec
	return s.save(doc)
}

func (s *FileStore) Delete(ctx context.Context, localPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	key := NormalizePath(localPath)
	if _, ok := doc.Diagrams[key]; !ok {
		return nil
	}
	delete(doc.Diagrams, key)
	return s.save(doc)
}

func (s *FileStore) List(ctx context.Context) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	recs := make([]*Record, 0, len(doc.Diagrams))
	for _, rec := range doc.Diagrams {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].LocalPath < recs[j].LocalPath })
	return recs, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() (*stateFile, error) {
	doc := &stateFile{Diagrams: map[string]*Record{}}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "reading state file %s", s.path)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parsing state file %s", s.path)
	}
	if doc.Diagrams == nil {
		doc.Diagrams = map[string]*Record{}
	}
	for path, rec := range doc.Diagrams {
		rec.LocalPath = path
	}
	return doc, nil
}

func (s *FileStore) save(doc *stateFile) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding state")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "creating state directory")
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "writing state file %s", s.path)
	}
	return nil
}
