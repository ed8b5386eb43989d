package topicstore

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tradewise/trade-data-assistant/internal/core/domain"
)

// FileStore writes the topic profile as YAML after each rebuild. The file
// is an operator convenience for inspecting what the filter learned; the
// authoritative profile lives inside the index snapshot.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Save(profile *domain.TopicProfile) error {
	if profile == nil {
		return fmt.Errorf("nil topic profile")
	}

	raw, err := yaml.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal topic profile: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write topic profile: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace topic profile: %w", err)
	}
	return nil
}
