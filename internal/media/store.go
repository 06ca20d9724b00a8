// Package media stores generated narration and video clips on disk and
// hands out opaque handles for playback.
package media

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashureev/scripture-companion/internal/audio"
	"github.com/google/uuid"
)

// Kind distinguishes the two clip families.
type Kind string

const (
	// KindAudio is a WAV narration clip.
	KindAudio Kind = "audio"
	// KindVideo is a generated scene video.
	KindVideo Kind = "video"
)

// ErrNotFound is returned for unknown or malformed handles.
var ErrNotFound = errors.New("media not found")

// Asset is a stored clip.
type Asset struct {
	ID       string        `json:"id"`
	Kind     Kind          `json:"kind"`
	URL      string        `json:"url"`
	MIMEType string        `json:"mime_type"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Store writes clips beneath a root directory.
type Store struct {
	root string
}

// NewStore creates the audio and video directories under root.
func NewStore(root string) (*Store, error) {
	for _, k := range []Kind{KindAudio, KindVideo} {
		if err := os.MkdirAll(filepath.Join(root, string(k)), 0o755); err != nil {
			return nil, fmt.Errorf("create media directory: %w", err)
		}
	}
	return &Store{root: root}, nil
}

// SaveNarration decodes a base64 PCM payload and stores it as a WAV clip.
func (s *Store) SaveNarration(payload string) (Asset, error) {
	samples, err := audio.DecodeBase64PCM(payload)
	if err != nil {
		return Asset{}, err
	}

	id := uuid.NewString()
	f, err := os.Create(s.path(KindAudio, id))
	if err != nil {
		return Asset{}, fmt.Errorf("create narration file: %w", err)
	}
	if err := audio.WriteWAV(f, samples); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return Asset{}, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return Asset{}, fmt.Errorf("close narration file: %w", err)
	}

	return Asset{
		ID:       id,
		Kind:     KindAudio,
		URL:      "/api/audio/" + id,
		MIMEType: "audio/wav",
		Duration: audio.Duration(len(samples)),
	}, nil
}

// SaveVideo stores raw video bytes.
func (s *Store) SaveVideo(data []byte, mimeType string) (Asset, error) {
	if len(data) == 0 {
		return Asset{}, errors.New("video is empty")
	}
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	id := uuid.NewString()
	tmp, err := os.CreateTemp(filepath.Join(s.root, string(KindVideo)), "video-*.tmp")
	if err != nil {
		return Asset{}, fmt.Errorf("create temp video file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return Asset{}, fmt.Errorf("write video: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return Asset{}, fmt.Errorf("close temp video file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(KindVideo, id)); err != nil {
		_ = os.Remove(tmp.Name())
		return Asset{}, fmt.Errorf("persist video: %w", err)
	}

	return Asset{
		ID:       id,
		Kind:     KindVideo,
		URL:      "/api/media/" + id,
		MIMEType: mimeType,
	}, nil
}

// Path resolves a handle to a file on disk.
func (s *Store) Path(kind Kind, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrNotFound
	}
	p := s.path(kind, id)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat media: %w", err)
	}
	return p, nil
}

// Prune deletes clips older than maxAge and returns how many were removed.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, k := range []Kind{KindAudio, KindVideo} {
		dir := filepath.Join(s.root, string(k))
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, fmt.Errorf("read media directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				slog.Warn("Failed to prune media file", "file", e.Name(), "error", err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}

func (s *Store) path(kind Kind, id string) string {
	ext := ".mp4"
	if kind == KindAudio {
		ext = ".wav"
	}
	return filepath.Join(s.root, string(kind), strings.ToLower(id)+ext)
}
