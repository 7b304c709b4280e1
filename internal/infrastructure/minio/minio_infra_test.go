package minio

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/stretchr/testify/require"
)

type memObjects struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	failPuts int
	deleted  []string
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memObjects) Upload(_ context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPuts > 0 {
		m.failPuts--
		return "", errors.New("minio hiccup")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.objects[key] = b
	m.types[key] = contentType
	return key, nil
}

func (m *memObjects) Download(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not used")
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func TestPutFile_RetriesAndUploads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filenames.json")
	require.NoError(t, os.WriteFile(path, []byte(`["1.jpg"]`), 0o644))

	objects := newMemObjects()
	objects.failPuts = 1
	infra := NewMinioInfrastructure(objects, logger.Nop(), context.Background())

	require.NoError(t, infra.PutFile(context.Background(), "ML/filenames.json", path))
	require.Equal(t, []byte(`["1.jpg"]`), objects.objects["ML/filenames.json"])
	require.Equal(t, "application/json", objects.types["ML/filenames.json"])
}

func TestPutFile_MissingFile(t *testing.T) {
	infra := NewMinioInfrastructure(newMemObjects(), logger.Nop(), context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, infra.PutFile(ctx, "k", filepath.Join(t.TempDir(), "absent.npy")))
}

func TestCleanupFiles(t *testing.T) {
	objects := newMemObjects()
	objects.objects["a"] = []byte("x")
	infra := NewMinioInfrastructure(objects, logger.Nop(), context.Background())

	infra.CleanupFiles([]string{"a"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, infra.WaitForCleanup(ctx))
	require.Equal(t, []string{"a"}, objects.deleted)
}
