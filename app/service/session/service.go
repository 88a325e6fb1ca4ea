// Package session persists the active conversation's session identifier
// across restarts. The identifier is issued by the calculation service on
// the first successful turn and must accompany every later request of the
// same conversation.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/AA-Fatima/599-cal/app/config"
	"github.com/samber/do"
)

const fileName = "session.json"

type storedSession struct {
	SessionID string `json:"session_id"`
}

type Service struct {
	mu       sync.Mutex
	filePath string
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewAt(cfg.Data.Dir)
}

func NewAt(dir string) (*Service, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	return &Service{
		filePath: filepath.Join(dir, fileName),
	}, nil
}

// Load returns the persisted session identifier, or ("", false) when none
// is stored. It never fails: missing or corrupt data reads as absent.
func (s *Service) Load() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return "", false
	}

	var stored storedSession
	if err = json.Unmarshal(data, &stored); err != nil {
		slog.Warn("Discarding corrupt session file", "path", s.filePath, "error", err)
		return "", false
	}

	if strings.TrimSpace(stored.SessionID) == "" {
		return "", false
	}

	return stored.SessionID, true
}

// Save overwrites any previously stored identifier.
func (s *Service) Save(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(storedSession{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err = os.WriteFile(s.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Clear removes the stored identifier. Safe to call when nothing is
// stored.
func (s *Service) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	return nil
}
