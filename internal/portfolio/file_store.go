package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wonny/bistpro/internal/contracts"
)

// fileRecord is the on-disk layout: {"start_date": "YYYY-MM-DD", "stocks": [...]}
type fileRecord struct {
	StartDate string                      `json:"start_date"`
	Stocks    []contracts.ScoredCandidate `json:"stocks"`
}

// FileStore keeps the selection in a single JSON file
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the selection. A missing file is (nil, nil); an undecodable one
// wraps ErrMalformedState.
func (s *FileStore) Load(_ context.Context) (*contracts.PortfolioSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	return decodeRecord(data)
}

func decodeRecord(data []byte) (*contracts.PortfolioSelection, error) {
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrMalformedState, err)
	}

	start, err := time.Parse(contracts.DateLayout, rec.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start_date %q: %v", contracts.ErrMalformedState, rec.StartDate, err)
	}

	return &contracts.PortfolioSelection{
		StartDate: start,
		Holdings:  rec.Stocks,
	}, nil
}

// Save replaces the file atomically
func (s *FileStore) Save(_ context.Context, sel *contracts.PortfolioSelection) error {
	if sel == nil {
		return fmt.Errorf("%w: nil selection", contracts.ErrInvalidInput)
	}

	data, err := json.MarshalIndent(fileRecord{
		StartDate: sel.StartDate.Format(contracts.DateLayout),
		Stocks:    sel.Holdings,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".portfolio-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Clear removes the file; clearing an absent selection is not an error
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", s.path, err)
	}
	return nil
}
