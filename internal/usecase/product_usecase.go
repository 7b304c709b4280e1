package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/DRSN-tech/visual-recommender/pkg/tr"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
)

const defaultImportBatchSize = 500

// ProductUseCase отдает карточки рекомендованных продуктов и импортирует датасет в БД.
type ProductUseCase struct {
	productRepo  ProductRepository
	categoryRepo CategoryRepository
	dbPool       transaction.Transactional
	cacheRepo    CacheRepository
	logger       logger.Logger
}

// NewProductUC создает use case. cacheRepo может быть nil, тогда кэш не используется.
func NewProductUC(
	productRepo ProductRepository,
	categoryRepo CategoryRepository,
	dbPool transaction.Transactional,
	cacheRepo CacheRepository,
	logger logger.Logger,
) *ProductUseCase {
	return &ProductUseCase{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		dbPool:       dbPool,
		cacheRepo:    cacheRepo,
		logger:       logger,
	}
}

// GetProductsInfo возвращает информацию о продуктах по их идентификаторам.
func (p *ProductUseCase) GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error) {
	const op = "ProductUseCase.GetProductsInfo"

	if len(req.IDs) == 0 {
		return nil, e.Wrap(op, e.ErrNoProducts)
	}

	// Поиск продуктов в кэше
	cached := p.cachedProducts(ctx, req.IDs)
	missing := make([]int64, 0, len(req.IDs))
	for _, id := range req.IDs {
		if _, ok := cached[id]; !ok {
			missing = append(missing, id)
		}
	}

	// Получение продуктов из БД
	fromDB := make(map[int64]ProductInfo, len(missing))
	if len(missing) > 0 {
		products, err := p.productRepo.GetProductsInfo(ctx, missing)
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		for _, pr := range products {
			fromDB[pr.ID] = pr
		}

		if p.cacheRepo != nil && len(products) > 0 {
			// Фоновое добавление продуктов в кэш
			go func() {
				bgCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
				defer cancel()

				if err := p.cacheRepo.SetProducts(bgCtx, products); err != nil {
					p.logger.Warnf("Failed to cache products in background: %v", e.Wrap(op, err))
				}
			}()
		}
	}

	// Формирование результата в порядке запроса
	result := make([]ProductInfo, 0, len(req.IDs))
	notFound := make([]int64, 0)
	for _, id := range req.IDs {
		if pr, ok := cached[id]; ok {
			result = append(result, pr)
		} else if pr, ok := fromDB[id]; ok {
			result = append(result, pr)
		} else {
			notFound = append(notFound, id)
		}
	}

	return NewGetProductsRes(result, notFound), nil
}

func (p *ProductUseCase) cachedProducts(ctx context.Context, ids []int64) map[int64]ProductInfo {
	if p.cacheRepo == nil {
		return nil
	}

	products, err := p.cacheRepo.GetProducts(ctx, ids)
	if err != nil {
		p.logger.Warnf("Failed to read products from cache: %v", err)
		return nil
	}

	return products
}

// ImportProducts загружает записи датасета пачками, каждая пачка в своей транзакции.
// Невалидные записи пропускаются и попадают в Failed.
func (p *ProductUseCase) ImportProducts(ctx context.Context, req *ImportProductsReq) (*ImportProductsRes, error) {
	const op = "ProductUseCase.ImportProducts"

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = defaultImportBatchSize
	}

	res := &ImportProductsRes{}
	valid := make([]ProductRecord, 0, len(req.Records))
	for _, rec := range req.Records {
		if err := validateRecord(rec); err != nil {
			p.logger.Warnf("Skipping product %d: %v", rec.ID, err)
			res.Failed++
			continue
		}
		valid = append(valid, rec)
	}

	categories := make(map[string]int64)
	for start := 0; start < len(valid); start += batchSize {
		end := min(start+batchSize, len(valid))

		changed, err := p.importBatch(ctx, valid[start:end], categories, res)
		if err != nil {
			return res, e.Wrap(op, err)
		}

		// Удаление из кэша старых данных товаров
		if p.cacheRepo != nil && len(changed) > 0 {
			if err := p.cacheRepo.DeleteProducts(ctx, changed); err != nil {
				p.logger.Warnf("Failed to delete products from cache: %v", e.Wrap(op, err))
			}
		}

		p.logger.Infof("Imported products %d-%d of %d", start+1, end, len(valid))
	}

	return res, nil
}

func (p *ProductUseCase) importBatch(
	ctx context.Context,
	batch []ProductRecord,
	categories map[string]int64,
	res *ImportProductsRes,
) (changed []int64, err error) {
	const op = "ProductUseCase.importBatch"

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, p.dbPool)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	// Если произошла ошибка, транзакция откатывается, а новые категории забываются
	created := make([]string, 0)
	defer func() {
		if err != nil {
			if tx.IsActive() {
				_ = tx.Rollback(ctx)
			}
			for _, name := range created {
				delete(categories, name)
			}
		}
	}()
	if ctx, err = bindTx(ctx, tx.Transaction()); err != nil {
		return nil, e.Wrap(op, err)
	}

	var inserted, unchanged int
	for _, rec := range batch {
		categoryID, ok := categories[rec.CategoryName]
		if !ok {
			// идемпотентное создание категории
			category, err := p.categoryRepo.Create(ctx, domain.NewCategory(rec.CategoryName))
			if err != nil {
				return nil, e.Wrap(op, err)
			}
			categoryID = category.ID
			categories[rec.CategoryName] = categoryID
			created = append(created, rec.CategoryName)
		}

		upserted, err := p.productRepo.Upsert(ctx, rec.ToDomain(categoryID))
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		if upserted.NoChanges {
			unchanged++
			continue
		}
		inserted++
		changed = append(changed, rec.ID)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, e.Wrap(op, err)
	}

	res.Inserted += inserted
	res.Unchanged += unchanged
	return changed, nil
}

func validateRecord(rec ProductRecord) error {
	if rec.ID <= 0 {
		return e.ErrInvalidProductIDs
	}
	if strings.TrimSpace(rec.Name) == "" {
		return e.ErrInvalidProductRecord
	}
	if strings.TrimSpace(rec.CategoryName) == "" {
		return e.ErrInvalidProductRecord
	}
	if rec.Price < 0 {
		return e.ErrInvalidProductRecord
	}
	return nil
}

// bindTx кладет pgx-транзакцию менеджера в контекст для репозиториев.
func bindTx(ctx context.Context, raw any) (context.Context, error) {
	pgxTx, ok := raw.(pgx.Tx)
	if !ok {
		return ctx, e.ErrTransactionNotFound
	}

	return tr.WithTx(ctx, pgxTx), nil
}
