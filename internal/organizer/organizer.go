// Package organizer раскладывает записи датасета товаров по каталогам-корзинам
// и готовит их к импорту в БД.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	AccessoriesDir = "accessories_backup"

	defaultWorkers = 4
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// ProgressFunc вызывается после каждого обработанного файла.
type ProgressFunc func(done, total int)

// ProductImporter сохраняет подготовленные записи в БД.
type ProductImporter interface {
	ImportProducts(ctx context.Context, req *usecase.ImportProductsReq) (*usecase.ImportProductsRes, error)
}

type Organizer struct {
	rules    *Rules
	logger   logger.Logger
	workers  int
	progress ProgressFunc
}

func New(rules *Rules, logger logger.Logger) *Organizer {
	return &Organizer{
		rules:    rules,
		logger:   logger,
		workers:  defaultWorkers,
		progress: func(int, int) {},
	}
}

// WithProgress задает обработчик прогресса. Вызывается из нескольких горутин.
func (o *Organizer) WithProgress(fn ProgressFunc) *Organizer {
	if fn != nil {
		o.progress = fn
	}
	return o
}

func (o *Organizer) WithWorkers(n int) *Organizer {
	if n > 0 {
		o.workers = n
	}
	return o
}

// CSVRequest описывает раскладку по styles.csv. Копируются изображения из ImagesDir,
// а если он не задан, JSON-записи из RecordsDir.
type CSVRequest struct {
	CSVPath    string
	ImagesDir  string
	RecordsDir string
	Dst        string
	By         Dimension
}

// OrganizeJSON копирует каждый JSON-файл src в <dst>/<корзина>/ по типу одежды.
// Записи без совпадений попадают в others.
func (o *Organizer) OrganizeJSON(ctx context.Context, src, dst string) (*Report, error) {
	files, err := NewWalker(o.rules.Includes, o.rules.Excludes).Walk(src)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", src, err)
	}

	report := NewReport()
	err = o.each(ctx, len(files), func(i int) {
		path := files[i]
		report.processed()

		rec, err := readJSONRecord(path)
		if err != nil {
			o.logger.Warnf("skip %s: %v", path, err)
			report.failed(path, err)
			return
		}

		bucket := o.rules.Classify(DimClothing, rec)
		if err := copyFile(path, filepath.Join(dst, bucketDir(bucket), filepath.Base(path))); err != nil {
			o.logger.Errorf(err, "copy %s", path)
			report.failed(path, err)
			return
		}

		o.logger.Debugf("organized %s into %s", filepath.Base(path), bucket)
		report.copied(bucket)
	})

	return report, err
}

// OrganizeCSV раскладывает строки styles.csv по признаку req.By.
func (o *Organizer) OrganizeCSV(ctx context.Context, req CSVRequest) (*Report, error) {
	if req.ImagesDir == "" && req.RecordsDir == "" {
		return nil, errors.New("either images or records directory is required")
	}

	records, rowErrs, err := readCSVRecords(req.CSVPath)
	if err != nil {
		return nil, err
	}

	report := NewReport()
	for _, rowErr := range rowErrs {
		o.logger.Warnf("%s: %v", req.CSVPath, rowErr)
		report.failed(req.CSVPath, rowErr)
	}

	err = o.each(ctx, len(records), func(i int) {
		rec := records[i]
		report.processed()

		id := strconv.FormatInt(rec.ID, 10)
		sources, missing := o.sourcesFor(id, req)
		for _, kind := range missing {
			o.logger.Warnf("no %s for product %s", kind, id)
			report.skipped(id, kind+" not found")
		}
		if len(sources) == 0 {
			return
		}

		bucket := o.rules.Classify(req.By, rec)
		for _, src := range sources {
			if err := copyFile(src, filepath.Join(req.Dst, bucketDir(bucket), filepath.Base(src))); err != nil {
				o.logger.Errorf(err, "copy %s", src)
				report.failed(src, err)
				continue
			}
			report.copied(bucket)
		}
	})

	return report, err
}

// SplitAccessories переносит JSON-записи аксессуаров в <dir>/accessories_backup/.
func (o *Organizer) SplitAccessories(ctx context.Context, dir string) (*Report, error) {
	files, err := NewWalker(o.rules.Includes, append([]string{AccessoriesDir + "/**"}, o.rules.Excludes...)).Walk(dir)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	backup := filepath.Join(dir, AccessoriesDir)
	if err := os.MkdirAll(backup, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", backup, err)
	}

	report := NewReport()
	err = o.each(ctx, len(files), func(i int) {
		path := files[i]
		report.processed()

		rec, err := readJSONRecord(path)
		if err != nil {
			o.logger.Warnf("skip %s: %v", path, err)
			report.failed(path, err)
			return
		}

		if !o.rules.IsAccessory(rec) {
			return
		}

		if err := os.Rename(path, filepath.Join(backup, filepath.Base(path))); err != nil {
			o.logger.Errorf(err, "move %s", path)
			report.failed(path, err)
			return
		}

		o.logger.Debugf("moved %s to %s", filepath.Base(path), AccessoriesDir)
		report.moved()
	})

	return report, err
}

// LoadJSONRecords читает записи для импорта из каталога src.
func (o *Organizer) LoadJSONRecords(ctx context.Context, src string) ([]*Record, *Report, error) {
	files, err := NewWalker(o.rules.Includes, o.rules.Excludes).Walk(src)
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", src, err)
	}

	report := NewReport()
	records := make([]*Record, len(files))
	err = o.each(ctx, len(files), func(i int) {
		report.processed()
		rec, err := readJSONRecord(files[i])
		if err != nil {
			o.logger.Warnf("skip %s: %v", files[i], err)
			report.failed(files[i], err)
			return
		}
		records[i] = rec
	})

	return compact(records), report, err
}

// LoadCSVRecords читает записи для импорта из styles.csv.
func (o *Organizer) LoadCSVRecords(path string) ([]*Record, *Report, error) {
	records, rowErrs, err := readCSVRecords(path)
	if err != nil {
		return nil, nil, err
	}

	report := NewReport()
	report.Processed = len(records) + len(rowErrs)
	for _, rowErr := range rowErrs {
		o.logger.Warnf("%s: %v", path, rowErr)
		report.failed(path, rowErr)
	}
	return records, report, nil
}

// Import сохраняет записи через importer. Записи с некорректной ценой попадают в отчет и пропускаются.
func (o *Organizer) Import(ctx context.Context, importer ProductImporter, records []*Record, batchSize int, report *Report) (*usecase.ImportProductsRes, error) {
	prepared := make([]usecase.ProductRecord, 0, len(records))
	for _, rec := range records {
		pr, err := rec.ToProductRecord()
		if err != nil {
			report.failed(strconv.FormatInt(rec.ID, 10), err)
			continue
		}
		prepared = append(prepared, pr)
	}

	res, err := importer.ImportProducts(ctx, &usecase.ImportProductsReq{Records: prepared, BatchSize: batchSize})
	if err != nil {
		return nil, err
	}

	o.logger.Infof("import finished: inserted=%d unchanged=%d failed=%d", res.Inserted, res.Unchanged, res.Failed)
	return res, nil
}

// each выполняет fn для индексов [0, n) в пуле из o.workers горутин.
// Отмена контекста прекращает выдачу новых заданий.
func (o *Organizer) each(ctx context.Context, n int, fn func(i int)) error {
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			o.progress(int(done.Add(1)), n)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// sourcesFor ищет изображение и JSON-запись продукта в заданных каталогах.
// missing перечисляет то, что искали, но не нашли.
func (o *Organizer) sourcesFor(id string, req CSVRequest) (found, missing []string) {
	if req.ImagesDir != "" {
		image := ""
		for _, ext := range imageExtensions {
			if path := filepath.Join(req.ImagesDir, id+ext); fileExists(path) {
				image = path
				break
			}
		}
		if image != "" {
			found = append(found, image)
		} else {
			missing = append(missing, "image")
		}
	}

	if req.RecordsDir != "" {
		if path := filepath.Join(req.RecordsDir, id+".json"); fileExists(path) {
			found = append(found, path)
		} else {
			missing = append(missing, "record")
		}
	}

	return found, missing
}

func readJSONRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseJSONRecord(data)
}

func readCSVRecords(path string) ([]*Record, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, rowErrs := ReadStylesCSV(f)
	if records == nil && len(rowErrs) > 0 {
		return nil, nil, fmt.Errorf("%s: %w", path, rowErrs[0])
	}
	return records, rowErrs, nil
}

func bucketDir(bucket string) string {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" || bucket == "." || bucket == ".." {
		return OthersBucket
	}
	return strings.NewReplacer("/", "_", `\`, "_").Replace(bucket)
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func compact(records []*Record) []*Record {
	out := records[:0]
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
