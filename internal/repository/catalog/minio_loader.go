package catalog

import (
	"context"
	"path"

	"github.com/DRSN-tech/visual-recommender/internal/cfg"
	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
)

// MinioLoader читает каталог из объектов бакета с префиксом cfg.Dir.
type MinioLoader struct {
	objects usecase.ObjectRepository
	cfg     *cfg.CatalogCfg
	logger  logger.Logger
}

func NewMinioLoader(objects usecase.ObjectRepository, cfg *cfg.CatalogCfg, logger logger.Logger) *MinioLoader {
	return &MinioLoader{objects: objects, cfg: cfg, logger: logger}
}

func (l *MinioLoader) Load(ctx context.Context) (*domain.Catalog, error) {
	const op = "MinioLoader.Load"

	featuresKey := path.Join(l.cfg.Dir, l.cfg.FeaturesFile)
	filenamesKey := path.Join(l.cfg.Dir, l.cfg.FilenamesFile)

	features, err := l.objects.Download(ctx, featuresKey)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer features.Close()

	table, err := readFeatures(features)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	names, err := l.objects.Download(ctx, filenamesKey)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer names.Close()

	filenames, err := readFilenames(names, filenamesKey)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	catalog, err := domain.NewCatalog(table, filenames)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	l.logger.Infof("Loaded catalog from bucket prefix %s: %d vectors of dim %d", l.cfg.Dir, catalog.Len(), catalog.Dim())
	return catalog, nil
}
