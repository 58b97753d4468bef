package storage

import (
	"context"
	"net/url"
	"sync"
	"time"
)

// MemoryStore keeps objects in process memory. Presigned URLs use the mem:// scheme.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *MemoryStore) PutObject(_ context.Context, objectKey, contentType string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey] = append([]byte(nil), body...)
	m.types[objectKey] = contentType
	return nil
}

func (m *MemoryStore) GeneratePresignedDownloadURL(_ context.Context, objectKey string, expires time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[objectKey]; !ok {
		return "", ErrObjectNotFound
	}
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}
	u := url.URL{Scheme: "mem", Path: "/" + objectKey, RawQuery: url.Values{"expires": {expires.String()}}.Encode()}
	return u.String(), nil
}

func (m *MemoryStore) DeleteObject(_ context.Context, objectKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[objectKey]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, objectKey)
	delete(m.types, objectKey)
	return nil
}

// Object returns a stored object and its content type.
func (m *MemoryStore) Object(objectKey string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.objects[objectKey]
	return body, m.types[objectKey], ok
}
