// Package tomlstore persists the room registry as a TOML file.
package tomlstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dkeye/Chorus/internal/core"
	"github.com/dkeye/Chorus/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	currentSchemaVersion = 1
	fileMode             = 0o600
	dirMode              = 0o700
	tempFilePattern      = ".rooms-*.toml.tmp"
)

type fileSchema struct {
	Version int      `toml:"version"`
	Rooms   []string `toml:"rooms"`
}

// Store rewrites the whole file on every Save through a temp file + rename.
type Store struct {
	path string
	mu   sync.Mutex
}

var _ core.RoomStore = (*Store)(nil)

func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("rooms file path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve rooms path: %w", err)
	}
	return &Store{path: filepath.Clean(abs)}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Load(ctx context.Context) ([]domain.RoomName, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.RoomName{}, nil
		}
		return nil, fmt.Errorf("read rooms file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode rooms file: %w", err)
	}
	if file.Version > currentSchemaVersion {
		return nil, fmt.Errorf("unsupported rooms schema version %d (current %d)", file.Version, currentSchemaVersion)
	}

	rooms := make([]domain.RoomName, 0, len(file.Rooms))
	for _, r := range file.Rooms {
		rooms = append(rooms, domain.RoomName(r))
	}
	return rooms, nil
}

func (s *Store) Save(ctx context.Context, rooms []domain.RoomName) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	file := fileSchema{Version: currentSchemaVersion, Rooms: make([]string, 0, len(rooms))}
	for _, r := range rooms {
		file.Rooms = append(file.Rooms, string(r))
	}
	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode rooms file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), dirMode); err != nil {
		return fmt.Errorf("create rooms directory: %w", err)
	}
	tempFile, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp rooms file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp rooms file: %w", err)
	}
	if err := tempFile.Chmod(fileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp rooms file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp rooms file: %w", err)
	}
	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace rooms file: %w", err)
	}
	cleanup = false
	return nil
}

func (s *Store) Close() error { return nil }
