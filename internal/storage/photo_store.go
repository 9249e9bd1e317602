package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const maxNameAttempts = 10000

var ErrInvalidFilename = errors.New("invalid photo filename")

// PhotoStore holds uploads in a per-session staging directory until the
// submission is confirmed, then moves them to the final directory.
type PhotoStore struct {
	stagingRoot string
	finalDir    string
}

func NewPhotoStore(stagingRoot string, finalDir string) *PhotoStore {
	return &PhotoStore{stagingRoot: stagingRoot, finalDir: finalDir}
}

func (store *PhotoStore) FinalDir() string {
	return store.finalDir
}

func (store *PhotoStore) StagingDir(sessionID string) string {
	return filepath.Join(store.stagingRoot, filepath.Base(filepath.Clean("/"+sessionID)))
}

// StagePath is where an upload named filename lands for the session. Only the
// base name of filename is kept.
func (store *PhotoStore) StagePath(sessionID string, filename string) (string, error) {
	name, err := cleanFilename(filename)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(sessionID) == "" {
		return "", errors.New("session id is required to stage a photo")
	}
	return filepath.Join(store.StagingDir(sessionID), name), nil
}

func (store *PhotoStore) Write(path string, content io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create staged photo: %w", err)
	}
	if _, err := io.Copy(file, content); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("write staged photo: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close staged photo: %w", err)
	}
	return nil
}

// Remove deletes one staged file. A file that is already gone is not an error.
func (store *PhotoStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove staged photo: %w", err)
	}
	return nil
}

// Promote moves every staged path that still exists into the final directory.
// A name already taken in the final directory gets a numeric suffix. Paths no
// longer on disk are returned in missing and skipped.
func (store *PhotoStore) Promote(paths []string) (promoted []string, missing []string, err error) {
	promoted = make([]string, 0, len(paths))
	for _, path := range paths {
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			missing = append(missing, path)
			continue
		}
		if err := os.MkdirAll(store.finalDir, 0o755); err != nil {
			return promoted, missing, fmt.Errorf("create photo directory: %w", err)
		}

		destination, err := reserveDestination(store.finalDir, filepath.Base(path))
		if err != nil {
			return promoted, missing, fmt.Errorf("promote %s: %w", filepath.Base(path), err)
		}
		if err := movePhoto(path, destination); err != nil {
			_ = os.Remove(destination)
			return promoted, missing, fmt.Errorf("promote %s: %w", filepath.Base(path), err)
		}
		promoted = append(promoted, destination)
	}
	return promoted, missing, nil
}

// Sweep removes every file left in the session's staging directory, including
// ones the session no longer tracks.
func (store *PhotoStore) Sweep(sessionID string) error {
	directory := store.StagingDir(sessionID)
	entries, err := os.ReadDir(directory)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read staging directory: %w", err)
	}

	var sweepErr error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(directory, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			sweepErr = errors.Join(sweepErr, err)
		}
	}
	if sweepErr != nil {
		return fmt.Errorf("sweep staging directory: %w", sweepErr)
	}
	_ = os.Remove(directory)
	return nil
}

// StagedFiles lists the files currently in the session's staging directory.
func (store *PhotoStore) StagedFiles(sessionID string) ([]string, error) {
	directory := store.StagingDir(sessionID)
	entries, err := os.ReadDir(directory)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, filepath.Join(directory, entry.Name()))
		}
	}
	return files, nil
}

// cleanFilename keeps the base name of an upload. Commas and control
// characters become "_" because Photo Paths is a comma-joined column.
func cleanFilename(filename string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/")
	name := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, filepath.Base(normalized))
	if name == "" || name == "." || name == ".." || name == "/" || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return name, nil
}

// reserveDestination claims name in directory, or name-1, name-2 ... when it
// is taken, by creating an empty placeholder the move then replaces.
func reserveDestination(directory string, name string) (string, error) {
	extension := filepath.Ext(name)
	stem := strings.TrimSuffix(name, extension)
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		candidate := name
		if attempt > 0 {
			candidate = fmt.Sprintf("%s-%d%s", stem, attempt, extension)
		}
		path := filepath.Join(directory, candidate)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if err := file.Close(); err != nil {
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("no free name for %s after %d attempts", name, maxNameAttempts)
}

func movePhoto(source string, destination string) error {
	if err := os.Rename(source, destination); err == nil {
		return nil
	}

	input, err := os.Open(source)
	if err != nil {
		return err
	}
	defer input.Close()

	output, err := os.Create(destination)
	if err != nil {
		return err
	}
	if _, err := io.Copy(output, input); err != nil {
		output.Close()
		return err
	}
	if err := output.Close(); err != nil {
		return err
	}
	input.Close()
	return os.Remove(source)
}
