package usecase

import (
	"context"
	"path"

	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
)

// CatalogUseCase переносит каталог между хранилищами: публикует файлы в объектное
// хранилище и синхронизирует эмбеддинги во внешнюю векторную БД.
type CatalogUseCase struct {
	loader        CatalogLoader
	vectorStore   VectorStore
	objectStore   CatalogObjectStore
	featuresFile  string
	filenamesFile string
	logger        logger.Logger
}

// NewCatalogUC создает use case. featuresFile и filenamesFile — имена объектов,
// под которыми загрузчик каталога будет искать файлы внутри префикса.
func NewCatalogUC(
	loader CatalogLoader,
	vectorStore VectorStore,
	objectStore CatalogObjectStore,
	featuresFile string,
	filenamesFile string,
	logger logger.Logger,
) *CatalogUseCase {
	return &CatalogUseCase{
		loader:        loader,
		vectorStore:   vectorStore,
		objectStore:   objectStore,
		featuresFile:  featuresFile,
		filenamesFile: filenamesFile,
		logger:        logger,
	}
}

// SyncVectorStore загружает каталог и записывает все его позиции в векторное хранилище.
// Возвращает число записанных точек.
func (c *CatalogUseCase) SyncVectorStore(ctx context.Context) (int, error) {
	const op = "CatalogUseCase.SyncVectorStore"

	if c.vectorStore == nil {
		return 0, e.Wrap(op, e.ErrVectorStoreDisabled)
	}

	catalog, err := c.loader.Load(ctx)
	if err != nil {
		return 0, e.Wrap(op, err)
	}

	if err := c.vectorStore.EnsureCollection(ctx, catalog.Dim()); err != nil {
		return 0, e.Wrap(op, err)
	}

	n, err := c.vectorStore.UpsertCatalog(ctx, catalog)
	if err != nil {
		return n, e.Wrap(op, err)
	}

	c.logger.Infof("Synced %d catalog vectors (dim=%d)", n, catalog.Dim())
	return n, nil
}

// Publish загружает локальные файлы каталога в объектное хранилище под префиксом req.Prefix.
func (c *CatalogUseCase) Publish(ctx context.Context, req *PublishCatalogReq) error {
	const op = "CatalogUseCase.Publish"

	if c.objectStore == nil {
		return e.Wrap(op, e.ErrObjectStoreDisabled)
	}

	uploads := []struct {
		key  string
		path string
	}{
		{key: path.Join(req.Prefix, c.featuresFile), path: req.FeaturesPath},
		{key: path.Join(req.Prefix, c.filenamesFile), path: req.FilenamesPath},
	}

	// При ошибке уже загруженные файлы удаляются: в бакете не должно остаться половины каталога
	uploaded := make([]string, 0, len(uploads))
	for _, u := range uploads {
		if err := c.objectStore.PutFile(ctx, u.key, u.path); err != nil {
			c.objectStore.CleanupFiles(uploaded)
			return e.Wrap(op, err)
		}
		uploaded = append(uploaded, u.key)
		c.logger.Infof("Uploaded %s -> %s", u.path, u.key)
	}

	return nil
}
