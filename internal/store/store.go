package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/user/audio-splitter/internal/export"
	"github.com/user/audio-splitter/internal/stt"
)

const ManifestName = "manifest.jsonl"

// FileStore keeps the manifest and transcripts of one chunk directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chunk directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

// createFile opens files the store writes incrementally.
var createFile = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// SaveManifest writes one artifact per line, in chunk order.
func (s *FileStore) SaveManifest(artifacts []export.Artifact) (path string, err error) {
	path = filepath.Join(s.dir, ManifestName)

	file, err := createFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to create manifest file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			path, err = "", fmt.Errorf("failed to close manifest file: %w", cerr)
		}
	}()

	encoder := json.NewEncoder(file)
	for _, artifact := range artifacts {
		if err := encoder.Encode(artifact); err != nil {
			return "", fmt.Errorf("failed to encode artifact: %w", err)
		}
	}

	log.Info().
		Str("file", path).
		Int("chunks", len(artifacts)).
		Msg("Saved manifest")

	return path, nil
}

func (s *FileStore) LoadManifest() ([]export.Artifact, error) {
	path := filepath.Join(s.dir, ManifestName)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest file: %w", err)
	}
	defer file.Close()

	var artifacts []export.Artifact
	decoder := json.NewDecoder(file)

	for decoder.More() {
		var artifact export.Artifact
		if err := decoder.Decode(&artifact); err != nil {
			return nil, fmt.Errorf("failed to decode artifact: %w", err)
		}
		// The directory may have moved since the manifest was written.
		artifact.Path = filepath.Join(s.dir, artifact.Name)
		artifacts = append(artifacts, artifact)
	}

	return artifacts, nil
}

// TranscriptPath returns chunk_<n>.json next to chunk_<n>.wav.
func (s *FileStore) TranscriptPath(chunkFile string) string {
	name := strings.TrimSuffix(chunkFile, filepath.Ext(chunkFile)) + ".json"
	return filepath.Join(s.dir, name)
}

func (s *FileStore) SaveTranscript(t *stt.Transcript) (string, error) {
	path := s.TranscriptPath(t.ChunkFile)

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write transcript file: %w", err)
	}

	log.Info().
		Str("file", path).
		Int("segments", len(t.Segments)).
		Msg("Saved transcript")

	return path, nil
}

func (s *FileStore) LoadTranscript(chunkFile string) (*stt.Transcript, error) {
	data, err := os.ReadFile(s.TranscriptPath(chunkFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript file: %w", err)
	}

	var t stt.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return &t, nil
}
