package pgdb

import (
	"context"

	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/DRSN-tech/visual-recommender/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// ProductRepo реализует репозиторий продуктов поверх PostgreSQL.
type ProductRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConv
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

// Upsert идемпотентно создаёт или обновляет продукт по ID из датасета.
// Запись обновляется только если изменилось хотя бы одно поле.
func (p *ProductRepo) Upsert(ctx context.Context, product *domain.Product) (*usecase.UpsertProductRes, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	model := p.conv.ToModel(product)

	// VALUES: id, name, price, category_id, gender, season, usage, base_colour, article_type
	query := `
		WITH upsert AS (
		INSERT INTO products (id, name, price, category_id, gender, season, usage, base_colour, article_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			category_id = EXCLUDED.category_id,
			gender = EXCLUDED.gender,
			season = EXCLUDED.season,
			usage = EXCLUDED.usage,
			base_colour = EXCLUDED.base_colour,
			article_type = EXCLUDED.article_type,
			updated_at = NOW()
		WHERE
			(products.name, products.price, products.category_id, products.gender,
			 products.season, products.usage, products.base_colour, products.article_type)
			IS DISTINCT FROM
			(EXCLUDED.name, EXCLUDED.price, EXCLUDED.category_id, EXCLUDED.gender,
			 EXCLUDED.season, EXCLUDED.usage, EXCLUDED.base_colour, EXCLUDED.article_type)
		RETURNING
			id, name, price, category_id, gender, season, usage, base_colour, article_type,
			created_at, updated_at, is_archived
		)
		SELECT
			id, name, price, category_id, gender, season, usage, base_colour, article_type,
			created_at, updated_at, is_archived,
			false AS no_changes
		FROM upsert

		UNION ALL

		SELECT
			id, name, price, category_id, gender, season, usage, base_colour, article_type,
			created_at, updated_at, is_archived,
			true AS no_changes
		FROM products
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM upsert);
	`

	var out converter.ProductModel
	var noChanges bool
	err = tx.QueryRow(ctx, query,
		model.ID, model.Name, model.Price, model.CategoryID,
		model.Gender, model.Season, model.Usage, model.BaseColour, model.ArticleType,
	).Scan(
		&out.ID, &out.Name, &out.Price, &out.CategoryID,
		&out.Gender, &out.Season, &out.Usage, &out.BaseColour, &out.ArticleType,
		&out.CreatedAt, &out.UpdatedAt, &out.IsArchived, &noChanges,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return usecase.NewUpsertProductRes(p.conv.ToEntity(&out), noChanges), nil
}

// GetProductsInfo возвращает информацию о продуктах по их идентификаторам, включая название категории.
// Архивные продукты не возвращаются.
func (p *ProductRepo) GetProductsInfo(ctx context.Context, ids []int64) ([]usecase.ProductInfo, error) {
	query := `
		SELECT pr.id, pr.name, pr.price, cat.name, pr.gender, pr.season, pr.usage, pr.base_colour
		FROM products pr
		JOIN categories cat ON pr.category_id = cat.id
		WHERE pr.id = ANY($1) AND NOT pr.is_archived
	`

	rows, err := p.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]usecase.ProductInfo, 0, len(ids))
	for rows.Next() {
		var product usecase.ProductInfo
		if err := rows.Scan(
			&product.ID, &product.Name, &product.Price, &product.CategoryName,
			&product.Gender, &product.Season, &product.Usage, &product.BaseColour,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, product)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}
