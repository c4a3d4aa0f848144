package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rentbook/rentbook-api/internal/domain"
)

// FileUserStore keeps the credential list in a single JSON file. The
// account population is small (demo auth contract), so the whole list
// is rewritten on every change.
type FileUserStore struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
}

// NewFileUserStore creates the parent directory if needed.
func NewFileUserStore(dir string, logger *zap.Logger) (*FileUserStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileUserStore{
		path:   filepath.Join(dir, "users.json"),
		logger: logger,
	}, nil
}

// FindByEmail looks a user up by email, case-insensitively.
func (s *FileUserStore) FindByEmail(ctx context.Context, email string) (*domain.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readAll()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if strings.EqualFold(records[i].Email, email) {
			rec := records[i]
			return &rec, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "user", ID: email}
}

// Upsert inserts or replaces a record keyed by email.
func (s *FileUserStore) Upsert(ctx context.Context, rec *domain.UserRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readAll()
	if err != nil {
		return err
	}

	replaced := false
	for i := range records {
		if strings.EqualFold(records[i].Email, rec.Email) {
			records[i] = *rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, *rec)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data)
}

func (s *FileUserStore) readAll() ([]domain.UserRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var records []domain.UserRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("user store corrupt, starting empty", zap.Error(err))
		return nil, nil
	}
	return records, nil
}
