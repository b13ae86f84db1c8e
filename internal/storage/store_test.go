package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type memObjectStore struct {
	objects map[string]string
	err     error
}

func (m *memObjectStore) PutObject(ctx context.Context, bucket, key string, data io.ReadSeeker) error {
	if m.err != nil {
		return m.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[bucket+"/"+key] = string(b)
	return nil
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix    string
		sourceURL string
		localPath string
		expected  string
	}{
		{"media", "https://www.youtube.com/watch?v=1", "/tmp/video.mp4", "media/youtube-com/video.mp4"},
		{"/media/", "https://soundcloud.com/a/b", "audio.mp3", "media/soundcloud-com/audio.mp3"},
		{"", "https://cdn.example.com/a.pdf", "downloaded.pdf", "cdn-example-com/downloaded.pdf"},
		{"media", "::bad", "downloaded.zip", "media/unknown/downloaded.zip"},
	}

	for _, test := range tests {
		u := &Uploader{Prefix: test.prefix}
		result := u.ObjectKey(test.sourceURL, test.localPath)
		if result != test.expected {
			t.Errorf("ObjectKey(%s, %s) = %s, expected %s", test.sourceURL, test.localPath, result, test.expected)
		}
	}
}

func TestUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(path, []byte("frames"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	store := &memObjectStore{objects: make(map[string]string)}
	u := &Uploader{Store: store, Bucket: "bucket", Prefix: "media"}

	key, err := u.Upload(context.Background(), "https://youtube.com/watch?v=1", path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if key != "media/youtube-com/video.mp4" {
		t.Errorf("Unexpected key: %s", key)
	}
	if store.objects["bucket/"+key] != "frames" {
		t.Errorf("Expected object content 'frames', got %q", store.objects["bucket/"+key])
	}
}

func TestUpload_Errors(t *testing.T) {
	u := &Uploader{Store: &memObjectStore{objects: map[string]string{}}, Bucket: "bucket"}
	if _, err := u.Upload(context.Background(), "https://youtube.com", "/path/to/nonexistent.mp4"); err == nil {
		t.Error("Expected error for missing file, got nil")
	}

	path := filepath.Join(t.TempDir(), "video.mp4")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	u.Store = &memObjectStore{err: errors.New("access denied")}
	_, err := u.Upload(context.Background(), "https://youtube.com", path)
	if err == nil || !strings.Contains(err.Error(), "s3://bucket/") {
		t.Errorf("Expected wrapped store error, got: %v", err)
	}
}
