package catalog

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/DRSN-tech/visual-recommender/internal/cfg"
	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
)

// FSLoader читает каталог из локальной директории.
type FSLoader struct {
	cfg    *cfg.CatalogCfg
	logger logger.Logger
}

func NewFSLoader(cfg *cfg.CatalogCfg, logger logger.Logger) *FSLoader {
	return &FSLoader{cfg: cfg, logger: logger}
}

// Load отсутствие любого из файлов возвращает e.ErrCatalogNotFound.
func (l *FSLoader) Load(ctx context.Context) (*domain.Catalog, error) {
	const op = "FSLoader.Load"

	featuresPath := filepath.Join(l.cfg.Dir, l.cfg.FeaturesFile)
	filenamesPath := filepath.Join(l.cfg.Dir, l.cfg.FilenamesFile)

	features, err := openFile(featuresPath)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer features.Close()

	names, err := openFile(filenamesPath)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer names.Close()

	if err := ctx.Err(); err != nil {
		return nil, e.Wrap(op, err)
	}

	table, err := readFeatures(features)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	filenames, err := readFilenames(names, l.cfg.FilenamesFile)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	catalog, err := domain.NewCatalog(table, filenames)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	l.logger.Infof("Loaded catalog from %s: %d vectors of dim %d", l.cfg.Dir, catalog.Len(), catalog.Dim())
	return catalog, nil
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, e.Wrap(path, e.ErrCatalogNotFound)
	}
	return f, err
}
