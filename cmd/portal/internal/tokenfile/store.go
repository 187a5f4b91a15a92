package tokenfile

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
)

const fileName = "session.json"

// ErrCorruptFile is returned by Read when the stored checksum does not match.
var ErrCorruptFile = errors.New("session file is corrupt")

// File is the on-disk representation of the stored session token.
type File struct {
	Version   int       `json:"version"`
	Token     string    `json:"token"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store keeps the session token in a file on the local filesystem. It
// implements session.Storage.
type Store struct {
	baseDir string
}

// New creates a token file store.
// If baseDir is empty, uses ~/.holeportal/
func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		baseDir = dir
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("token file store initialized")

	return &Store{baseDir: baseDir}, nil
}

// DefaultDir returns ~/.holeportal
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".holeportal"), nil
}

// Path returns the location of the session file.
func (s *Store) Path() string {
	return filepath.Join(s.baseDir, fileName)
}

// Load returns the stored token, or an empty string when there is none.
// A corrupt file is treated as logged out.
func (s *Store) Load() (string, error) {
	f, err := s.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		if errors.Is(err, ErrCorruptFile) {
			log.Warn().Str("path", s.Path()).Msg("ignoring corrupt session file")
			return "", nil
		}
		return "", err
	}
	return f.Token, nil
}

// Read reads and verifies the session file.
func (s *Store) Read() (*File, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}

	if f.Checksum != checksum(f.Token) {
		return nil, ErrCorruptFile
	}

	return &f, nil
}

// Save writes the token atomically with 0600 permissions.
func (s *Store) Save(token string) error {
	f := &File{
		Version:   1,
		Token:     token,
		Checksum:  checksum(token),
		UpdatedAt: time.Now().UTC(),
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session file: %w", err)
	}

	// Write to temp file first
	path := s.Path()
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save session file: %w", err)
	}

	log.Debug().Str("path", path).Msg("session token saved")

	return nil
}

// Clear removes the session file. Clearing an absent file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// Fingerprint returns a short base58 SHA-256 fingerprint of token, safe to
// print in place of the token itself.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(token))
	return base58.Encode(hash[:8])
}

func checksum(token string) string {
	h := crc64nvme.New()
	h.Write([]byte(token))
	return strconv.FormatUint(h.Sum64(), 16)
}
