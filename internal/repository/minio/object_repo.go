package minio

import (
	"context"
	"io"

	"github.com/DRSN-tech/visual-recommender/internal/cfg"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// ObjectRepo реализует хранилище объектов каталога поверх MinIO.
type ObjectRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewObjectRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *ObjectRepo {
	return &ObjectRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// Upload загружает объект в MinIO и возвращает его ключ.
func (o *ObjectRepo) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	info, err := o.mc.PutObject(ctx, o.cfg.BucketName, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}

// Download открывает объект на чтение. Отсутствующий объект или бакет дает e.ErrCatalogNotFound.
func (o *ObjectRepo) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := o.mc.GetObject(ctx, o.cfg.BucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	// GetObject ленивый: ошибки доступа проявляются только на Stat/Read
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		switch minio.ToErrorResponse(err).Code {
		case "NoSuchKey", "NoSuchBucket":
			return nil, e.Wrap(key, e.ErrCatalogNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return obj, nil
}

// Delete удаляет объект из MinIO по указанному ключу.
func (o *ObjectRepo) Delete(ctx context.Context, key string) error {
	if err := o.mc.RemoveObject(ctx, o.cfg.BucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
