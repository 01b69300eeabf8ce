package storage

import (
	"context"
	"sync"
	"time"
)

var _ ObjectStorage = (*StubObjectStorage)(nil)

// StubObjectStorage keeps uploads in memory and hands out fake URLs.
// It is used when storage is disabled and in tests.
type StubObjectStorage struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewStubObjectStorage creates a new StubObjectStorage
func NewStubObjectStorage() *StubObjectStorage {
	return &StubObjectStorage{
		BaseURL: "https://storage.local",
		objects: make(map[string][]byte),
	}
}

func (s *StubObjectStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *StubObjectStorage) PresignUpload(_ context.Context, key, _ string, expires time.Duration) (string, time.Time, error) {
	return s.url("upload", key, expires)
}

func (s *StubObjectStorage) PresignDownload(_ context.Context, key string, expires time.Duration) (string, time.Time, error) {
	return s.url("download", key, expires)
}

func (s *StubObjectStorage) url(op, key string, expires time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrEmptyKey
	}
	expiresAt := time.Now().Add(expires)
	return s.BaseURL + "/" + op + "/" + key + "?expires=" + expiresAt.UTC().Format(time.RFC3339), expiresAt, nil
}

func (s *StubObjectStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Exists always reports true so presigned-upload confirmation works
// without a real backend.
func (s *StubObjectStorage) Exists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	return true, nil
}

func (s *StubObjectStorage) EnsureBucket(context.Context) error { return nil }

// Object returns the stored bytes of an uploaded key
func (s *StubObjectStorage) Object(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	return data, ok
}
