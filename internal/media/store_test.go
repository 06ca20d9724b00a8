package media

import (
	"encoding/base64"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestSaveNarration(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	pcm := make([]byte, 48000) // one second of silence
	asset, err := s.SaveNarration(base64.StdEncoding.EncodeToString(pcm))
	if err != nil {
		t.Fatalf("SaveNarration failed: %v", err)
	}
	if asset.Kind != KindAudio || !strings.HasPrefix(asset.URL, "/api/audio/") {
		t.Fatalf("unexpected asset %+v", asset)
	}
	if asset.Duration != time.Second {
		t.Fatalf("expected 1s duration, got %s", asset.Duration)
	}

	p, err := s.Path(KindAudio, asset.ID)
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data[:4]) != "RIFF" {
		t.Fatalf("expected RIFF header, got %q", data[:4])
	}
}

func TestSaveVideoAndResolve(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	asset, err := s.SaveVideo([]byte("fake-mp4"), "")
	if err != nil {
		t.Fatalf("SaveVideo failed: %v", err)
	}
	if asset.MIMEType != "video/mp4" {
		t.Errorf("expected default mime, got %q", asset.MIMEType)
	}
	if _, err := s.Path(KindVideo, asset.ID); err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	if _, err := s.Path(KindAudio, asset.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong kind, got %v", err)
	}
	if _, err := s.Path(KindVideo, "../../etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for traversal, got %v", err)
	}
	if _, err := s.SaveVideo(nil, ""); err == nil {
		t.Fatal("expected error for empty video")
	}
}

func TestPrune(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	asset, err := s.SaveVideo([]byte("old"), "video/mp4")
	if err != nil {
		t.Fatalf("SaveVideo failed: %v", err)
	}
	p, _ := s.Path(KindVideo, asset.ID)
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(p, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, err := s.SaveVideo([]byte("new"), "video/mp4"); err != nil {
		t.Fatalf("SaveVideo failed: %v", err)
	}

	removed, err := s.Prune(time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}
