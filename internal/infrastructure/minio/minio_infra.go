package minio

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/jitter"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
)

const maxAttempts = 3

// MinioInfrastructure загружает файлы каталога в MinIO и убирает недогруженные объекты.
type MinioInfrastructure struct {
	objectRepo  usecase.ObjectRepository
	logger      logger.Logger
	shutdownCtx context.Context
	backoff     *jitter.Backoff
	wg          sync.WaitGroup
}

func NewMinioInfrastructure(objectRepo usecase.ObjectRepository, logger logger.Logger, shutdownCtx context.Context) *MinioInfrastructure {
	return &MinioInfrastructure{
		objectRepo:  objectRepo,
		logger:      logger,
		shutdownCtx: shutdownCtx,
		backoff:     jitter.NewBackoff(time.Second, 10*time.Second),
	}
}

// PutFile загружает локальный файл под ключом key, повторяя попытку при ошибке.
func (m *MinioInfrastructure) PutFile(ctx context.Context, key string, path string) error {
	const op = "MinioInfrastructure.PutFile"

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = m.putOnce(ctx, key, path, contentType)
		if lastErr == nil {
			return nil
		}

		if attempt < maxAttempts-1 {
			m.logger.Warnf("upload %s failed, retrying (attempt %d): %v", key, attempt+1, lastErr)
			if err := m.backoff.Wait(ctx, attempt); err != nil {
				return e.Wrap(op, err)
			}
		}
	}

	return e.Wrap(op, fmt.Errorf("all %d attempts failed: %w", maxAttempts, lastErr))
}

func (m *MinioInfrastructure) putOnce(ctx context.Context, key, path, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}

	_, err = m.objectRepo.Upload(ctx, key, f, st.Size(), contentType)
	return err
}

// CleanupFiles запускает фоновую очистку указанных ключей MinIO
func (m *MinioInfrastructure) CleanupFiles(keys []string) {
	if len(keys) == 0 {
		return
	}
	m.wg.Add(1)
	go m.cleanupUploadedKeys(keys)
}

// cleanupUploadedKeys удаляет указанные объекты из MinIO с экспоненциальной задержкой и jitter.
func (m *MinioInfrastructure) cleanupUploadedKeys(keys []string) {
	defer m.wg.Done()
	const op = "MinioInfrastructure.cleanupUploadedKeys"
	m.logger.Infof("%s: Cleaning up uploaded keys %v", op, keys)

	ctx, cancel := context.WithTimeout(m.shutdownCtx, 30*time.Second)
	defer cancel()

	for _, key := range keys {
		for attempt := 0; attempt < maxAttempts; attempt++ {
			err := m.objectRepo.Delete(ctx, key)
			if err == nil {
				break
			}

			if attempt == maxAttempts-1 {
				m.logger.Errorf(err, "%s: giving up on key=%s", op, key)
				break
			}

			if err := m.backoff.Wait(ctx, attempt); err != nil {
				m.logger.Warnf("cleanup interrupted by shutdown, key=%v", key)
				return
			}
		}
	}
}

// WaitForCleanup ожидает завершения всех фоновых задач очистки с учётом таймаута завершения приложения.
func (m *MinioInfrastructure) WaitForCleanup(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("minio cleanup timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}
