package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/stretchr/testify/require"
)

type fakeVectorStore struct {
	dim      int
	upserted int
}

func (f *fakeVectorStore) EnsureCollection(_ context.Context, dim int) error {
	f.dim = dim
	return nil
}

func (f *fakeVectorStore) UpsertCatalog(_ context.Context, c *domain.Catalog) (int, error) {
	f.upserted = c.Len()
	return c.Len(), nil
}

type fakeObjectStore struct {
	puts    map[string]string
	failOn  string
	cleaned []string
}

func (f *fakeObjectStore) PutFile(_ context.Context, key, path string) error {
	if key == f.failOn {
		return errors.New("upload failed")
	}
	f.puts[key] = path
	return nil
}

func (f *fakeObjectStore) CleanupFiles(keys []string) {
	f.cleaned = append(f.cleaned, keys...)
}

func TestSyncVectorStore(t *testing.T) {
	loader := &fakeLoader{catalog: lineCatalog(t, defaultFilenames())}
	store := &fakeVectorStore{}
	uc := NewCatalogUC(loader, store, nil, "images_features.npy", "filenames.json", logger.Nop())

	n, err := uc.SyncVectorStore(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.Equal(t, 2, store.dim)
}

func TestSyncVectorStore_Disabled(t *testing.T) {
	uc := NewCatalogUC(&fakeLoader{}, nil, nil, "f.npy", "f.json", logger.Nop())

	_, err := uc.SyncVectorStore(context.Background())
	require.ErrorIs(t, err, e.ErrVectorStoreDisabled)
}

func TestSyncVectorStore_LoaderError(t *testing.T) {
	uc := NewCatalogUC(&fakeLoader{err: e.ErrCatalogNotFound}, &fakeVectorStore{}, nil, "f.npy", "f.json", logger.Nop())

	_, err := uc.SyncVectorStore(context.Background())
	require.ErrorIs(t, err, e.ErrCatalogNotFound)
}

func TestPublish(t *testing.T) {
	objects := &fakeObjectStore{puts: map[string]string{}}
	uc := NewCatalogUC(nil, nil, objects, "images_features.npy", "filenames.json", logger.Nop())

	err := uc.Publish(context.Background(), &PublishCatalogReq{
		FeaturesPath:  "/data/ML/feats.npy",
		FilenamesPath: "/data/ML/names.json",
		Prefix:        "ML",
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"ML/images_features.npy": "/data/ML/feats.npy",
		"ML/filenames.json":      "/data/ML/names.json",
	}, objects.puts)

	uc = NewCatalogUC(nil, nil, nil, "a", "b", logger.Nop())
	require.ErrorIs(t, uc.Publish(context.Background(), &PublishCatalogReq{}), e.ErrObjectStoreDisabled)
}

func TestPublish_CleansUpOnFailure(t *testing.T) {
	objects := &fakeObjectStore{puts: map[string]string{}, failOn: "ML/filenames.json"}
	uc := NewCatalogUC(nil, nil, objects, "images_features.npy", "filenames.json", logger.Nop())

	err := uc.Publish(context.Background(), &PublishCatalogReq{
		FeaturesPath:  "feats.npy",
		FilenamesPath: "names.json",
		Prefix:        "ML",
	})
	require.Error(t, err)
	require.Equal(t, []string{"ML/images_features.npy"}, objects.cleaned)
}
