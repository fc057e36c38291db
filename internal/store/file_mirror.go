package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/griga-events/ticketing/internal/domain"
)

// FileMirror keeps the ticket snapshot in a single JSON file.
type FileMirror struct {
	path string
}

// NewFileMirror returns a mirror writing to path.
func NewFileMirror(path string) *FileMirror {
	return &FileMirror{path: path}
}

// Path returns the snapshot location.
func (m *FileMirror) Path() string {
	return m.path
}

// Load reads the snapshot. A missing file yields an empty list.
func (m *FileMirror) Load(_ context.Context) ([]domain.Ticket, error) {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", m.path, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var tickets []domain.Ticket
	if err := json.Unmarshal(raw, &tickets); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptSnapshot, m.path, err)
	}
	return tickets, nil
}

// Save replaces the snapshot atomically.
func (m *FileMirror) Save(_ context.Context, tickets []domain.Ticket) error {
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	payload, err := json.MarshalIndent(tickets, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tickets-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("replace %s: %w", m.path, err)
	}
	return nil
}
