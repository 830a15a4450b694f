// Package modelstore resolves a configured ASR model path against
// local search directories, downloading it from a remote URL if
// missing.
package modelstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cleanstream/cleanstream/pkg/cleanstreamerr"
)

// Descriptor is a candidate model's local search path, remote URL, and
// optional checksum.
type Descriptor struct {
	Path   string
	URL    string
	SHA256 string
}

// Store resolves Descriptors to a local file path, searching first
// then optionally downloading. Grounded on
// original_source/src/model-utils/model-downloader.cpp's
// find_model_folder / find_model_bin_file two-directory search: a
// "models/" directory relative to the working directory (the data
// dir), then a per-user config directory.
type Store struct {
	// WorkDir overrides the working directory used to derive the
	// "models/" search path; empty means os.Getwd().
	WorkDir string
	// HTTPClient is used for downloads; defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// New builds a Store with default search behavior.
func New() *Store {
	return &Store{HTTPClient: http.DefaultClient}
}

// Resolve implements the four-step contract in spec §6.4.
func (s *Store) Resolve(ctx context.Context, desc Descriptor) (string, error) {
	if desc.Path != "" {
		if fileExists(desc.Path) {
			return desc.Path, nil
		}
	}

	dataPath := s.dataDirCandidate(desc.Path)
	if dataPath != "" && fileExists(dataPath) {
		log.Printf("[modelstore] model found in data dir: %s", dataPath)
		return dataPath, nil
	}

	configPath := s.configDirCandidate(desc.Path)
	if configPath != "" && fileExists(configPath) {
		log.Printf("[modelstore] model found in config dir: %s", configPath)
		return configPath, nil
	}

	if desc.URL == "" {
		return "", cleanstreamerr.ErrModelNotFound
	}

	dest := configPath
	if dest == "" {
		return "", cleanstreamerr.ErrModelNotFound
	}

	if err := s.download(ctx, desc, dest); err != nil {
		return "", fmt.Errorf("%w: %v", cleanstreamerr.ErrModelLoadFailed, err)
	}
	return dest, nil
}

func (s *Store) dataDirCandidate(path string) string {
	if path == "" {
		return ""
	}
	workDir := s.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		workDir = wd
	}
	return filepath.Join(workDir, "models", filepath.Base(path))
}

func (s *Store) configDirCandidate(path string) string {
	if path == "" {
		return ""
	}
	base, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "cleanstream", "models", filepath.Base(path))
}

func (s *Store) download(ctx context.Context, desc Descriptor, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("modelstore: creating destination directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, desc.URL, nil)
	if err != nil {
		return fmt.Errorf("modelstore: building download request: %w", err)
	}

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("modelstore: downloading model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("modelstore: download returned status %s", resp.Status)
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("modelstore: creating temp file: %w", err)
	}

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(f, hasher), resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("modelstore: writing downloaded model: %w", err)
	}
	f.Close()

	if desc.SHA256 != "" {
		sum := hex.EncodeToString(hasher.Sum(nil))
		if sum != desc.SHA256 {
			os.Remove(tmp)
			return fmt.Errorf("modelstore: checksum mismatch: got %s, want %s", sum, desc.SHA256)
		}
	}

	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("modelstore: finalizing downloaded model: %w", err)
	}

	log.Printf("[modelstore] downloaded model to %s", dest)
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
