package app

import (
	"context"
	"testing"
	"time"

	config "github.com/DRSN-tech/visual-recommender/internal/cfg"
	"github.com/DRSN-tech/visual-recommender/pkg/closer"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestCatalogLoader_UnreachableMinioIsNotBootFailure(t *testing.T) {
	cfg := &config.Config{
		Catalog: &config.CatalogCfg{
			Source:        config.CatalogSourceMinio,
			Dir:           "catalog",
			FeaturesFile:  "images_features.npy",
			FilenamesFile: "filenames.json",
		},
		Minio: &config.MinIOCfg{
			MinioEndpoint: "127.0.0.1:1",
			BucketName:    "catalog",
		},
	}
	d := NewDeps(cfg, logger.Nop(), closer.NewCloser())

	loader, err := d.CatalogLoader()
	require.NoError(t, err)
	require.NotNil(t, loader)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = loader.Load(ctx)
	require.Error(t, err)
}

func TestObjects_DisabledWithoutMinio(t *testing.T) {
	d := NewDeps(&config.Config{}, logger.Nop(), closer.NewCloser())

	objects, err := d.Objects()
	require.NoError(t, err)
	require.Nil(t, objects)

	objects, err = d.BucketObjects(context.Background())
	require.NoError(t, err)
	require.Nil(t, objects)
}
