package app

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TranscriptStore persists conversation transcripts as JSON on disk so a
// restarted client resumes where it left off.
//
// Layout:
//
//	<root>/transcript/current
//	<root>/transcript/<sessionID>.json
type TranscriptStore struct {
	Root string
}

func NewTranscriptStore(root string) *TranscriptStore {
	if strings.TrimSpace(root) == "" {
		root = DefaultDataDir()
	}
	return &TranscriptStore{Root: root}
}

func (s *TranscriptStore) dir() string {
	return filepath.Join(s.Root, "transcript")
}

func (s *TranscriptStore) currentPath() string {
	return filepath.Join(s.dir(), "current")
}

func (s *TranscriptStore) sessionPath(id string) string {
	return filepath.Join(s.dir(), id+".json")
}

// LoadOrCreateCurrent returns the current session and its messages, creating
// a fresh empty session when none exists or the current pointer is stale.
func (s *TranscriptStore) LoadOrCreateCurrent() (string, []Message, error) {
	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return "", nil, err
	}

	if data, err := os.ReadFile(s.currentPath()); err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			msgs, err := s.load(id)
			if err == nil {
				return id, msgs, nil
			}
			if !errors.Is(err, os.ErrNotExist) {
				return "", nil, err
			}
		}
	}

	id := uuid.New().String()
	if err := s.Save(id, nil); err != nil {
		return "", nil, err
	}
	if err := os.WriteFile(s.currentPath(), []byte(id), 0o644); err != nil {
		return "", nil, err
	}
	return id, nil, nil
}

func (s *TranscriptStore) load(id string) ([]Message, error) {
	data, err := os.ReadFile(s.sessionPath(id))
	if err != nil {
		return nil, err
	}
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Save writes the full transcript atomically (tmp file + rename).
func (s *TranscriptStore) Save(id string, msgs []Message) error {
	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return err
	}
	if msgs == nil {
		msgs = []Message{}
	}
	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.sessionPath(id) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.sessionPath(id))
}
