package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const Extension = ".wav"

var ErrNoRecordings = errors.New("no recordings found")

// One entry of a directory listing.
type Entry struct {
	Name         string
	IsDir        bool
	LastModified time.Time
}

// Store manages the recording directory on removable storage.
//
// All paths handed to the store are relative to the filesystem root;
// recordings live in a single directory named at construction time.
type Store struct {
	logger   *slog.Logger
	fs       afero.Fs
	dir      string
	baseName string
}

// Create a new store over fs, keeping recordings named baseName01.wav, baseName02.wav, ...
// inside dir. The directory is created on first use.
func NewStore(fs afero.Fs, dir string, baseName string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger:   logger,
		fs:       fs,
		dir:      dir,
		baseName: baseName,
	}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Create the recording directory if it does not exist yet.
func (s *Store) EnsureDir() error {
	exists, err := afero.DirExists(s.fs, s.dir)
	if err != nil {
		return fmt.Errorf("could not stat recording directory: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Error("could not create recording directory", "dir", s.dir, "err", err)
		return fmt.Errorf("could not create recording directory: %w", err)
	}
	s.logger.Info("created recording directory", "dir", s.dir)
	return nil
}

// Path of the recording with the given name, without extension.
func (s *Store) PathFor(name string) string {
	return path.Join(s.dir, name+Extension)
}

func (s *Store) Exists(p string) bool {
	exists, err := afero.Exists(s.fs, p)
	return err == nil && exists
}

// Create (or truncate) the file at p for writing.
func (s *Store) Create(p string) (afero.File, error) {
	if err := s.EnsureDir(); err != nil {
		return nil, err
	}
	f, err := s.fs.OpenFile(p, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("could not create %s: %w", p, err)
	}
	return f, nil
}

// Open the file at p for reading.
func (s *Store) Open(p string) (afero.File, error) {
	f, err := s.fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", p, err)
	}
	return f, nil
}

// List the entries of directory p.
func (s *Store) List(p string) ([]Entry, error) {
	infos, err := afero.ReadDir(s.fs, p)
	if err != nil {
		return nil, fmt.Errorf("could not list %s: %w", p, err)
	}
	entries := make([]Entry, len(infos))
	for i, info := range infos {
		entries[i] = Entry{
			Name:         info.Name(),
			IsDir:        info.IsDir(),
			LastModified: info.ModTime(),
		}
	}
	return entries, nil
}

// Return the first unused recording name, probing baseName01, baseName02, ...
//
// The returned name has no directory and no extension.
func (s *Store) NextRecordingName() string {
	for index := 1; ; index++ {
		name := fmt.Sprintf("%s%02d", s.baseName, index)
		if !s.Exists(s.PathFor(name)) {
			return name
		}
	}
}

// Return the path of the most recently modified recording in the recording directory.
//
// Returns ErrNoRecordings if the directory holds no recordings.
func (s *Store) LastRecording() (string, error) {
	entries, err := s.List(s.dir)
	if err != nil {
		return "", err
	}

	var latest Entry
	for _, entry := range entries {
		if entry.IsDir || !strings.HasSuffix(entry.Name, Extension) {
			continue
		}
		if latest.Name == "" || entry.LastModified.After(latest.LastModified) {
			latest = entry
		}
	}
	if latest.Name == "" {
		return "", ErrNoRecordings
	}

	s.logger.Debug("latest recording", "name", latest.Name, "modified", latest.LastModified)
	return path.Join(s.dir, latest.Name), nil
}
