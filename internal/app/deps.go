package app

import (
	"context"
	"errors"
	"time"

	config "github.com/DRSN-tech/visual-recommender/internal/cfg"
	"github.com/DRSN-tech/visual-recommender/internal/infrastructure/features"
	"github.com/DRSN-tech/visual-recommender/internal/infrastructure/imaging"
	"github.com/DRSN-tech/visual-recommender/internal/infrastructure/index"
	"github.com/DRSN-tech/visual-recommender/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/visual-recommender/internal/infrastructure/minio"
	ml_service "github.com/DRSN-tech/visual-recommender/internal/infrastructure/ml-service"
	"github.com/DRSN-tech/visual-recommender/internal/repository/catalog"
	s3Repo "github.com/DRSN-tech/visual-recommender/internal/repository/minio"
	"github.com/DRSN-tech/visual-recommender/internal/repository/pgdb"
	qdrantRepo "github.com/DRSN-tech/visual-recommender/internal/repository/qdrant"
	"github.com/DRSN-tech/visual-recommender/internal/repository/redis"
	redisConv "github.com/DRSN-tech/visual-recommender/internal/repository/redis/converter"
	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/clients"
	"github.com/DRSN-tech/visual-recommender/pkg/closer"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/DRSN-tech/visual-recommender/pkg/postgres"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

const initTimeout = 10 * time.Second

// Deps собирает клиенты опциональных бэкендов. Ресурсы регистрируются в closer
// и освобождаются в обратном порядке.
type Deps struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	minio       *minio.Client
	objects     usecase.ObjectRepository
	bucketReady bool
	qdrant      *clients.QdrantClient
	redis       *clients.RedisClient
	db          *postgres.PgDatabase
}

func NewDeps(cfg *config.Config, logger logger.Logger, cl *closer.Closer) *Deps {
	return &Deps{cfg: cfg, logger: logger, closer: cl}
}

// Objects возвращает репозиторий MinIO или nil, если MinIO не настроен.
// Сеть не трогается: недоступный MinIO проявится при загрузке каталога, а не при старте.
func (d *Deps) Objects() (usecase.ObjectRepository, error) {
	if d.objects != nil || d.cfg.Minio == nil {
		return d.objects, nil
	}

	mc, err := clients.NewMinIOClient(d.cfg.Minio)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	d.minio = mc
	d.objects = s3Repo.NewObjectRepo(mc, d.cfg.Minio)
	return d.objects, nil
}

// BucketObjects как Objects, но дополнительно создает бакет. Нужен командам, которые пишут в MinIO.
func (d *Deps) BucketObjects(ctx context.Context) (usecase.ObjectRepository, error) {
	objects, err := d.Objects()
	if err != nil || objects == nil || d.bucketReady {
		return objects, err
	}

	ctx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	if err := clients.EnsureBucket(ctx, d.minio, d.cfg.Minio.BucketName); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	d.bucketReady = true
	return objects, nil
}

func (d *Deps) Qdrant() (*clients.QdrantClient, error) {
	if d.qdrant != nil || d.cfg.Qdrant == nil {
		return d.qdrant, nil
	}

	client, err := clients.NewQdrantClient(d.cfg.Qdrant)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	d.closer.AddErr("qdrant", client.Close)

	d.qdrant = client
	return d.qdrant, nil
}

func (d *Deps) Redis(ctx context.Context) (*clients.RedisClient, error) {
	if d.redis != nil || d.cfg.Redis == nil {
		return d.redis, nil
	}

	client := clients.NewRedisClient(d.cfg.Redis)
	ctx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	d.closer.AddErr("redis", client.Close)

	d.redis = client
	return d.redis, nil
}

func (d *Deps) DB() (*postgres.PgDatabase, error) {
	if d.db != nil || d.cfg.Db == nil {
		return d.db, nil
	}

	db, err := initPGDB(d.logger, d.cfg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	d.closer.Add("postgres", func(context.Context) error {
		db.Close()
		return nil
	})

	d.db = db
	return d.db, nil
}

// CatalogLoader выбирает источник каталога по CATALOG_SOURCE.
func (d *Deps) CatalogLoader() (usecase.CatalogLoader, error) {
	if d.cfg.Catalog.Source != config.CatalogSourceMinio {
		return catalog.NewFSLoader(d.cfg.Catalog, d.logger), nil
	}

	objects, err := d.Objects()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if objects == nil {
		return nil, e.Wrap(whereami.WhereAmI(), errors.New("catalog source minio requires MINIO_ENDPOINT"))
	}
	return catalog.NewMinioLoader(objects, d.cfg.Catalog, d.logger), nil
}

// VectorRepo возвращает репозиторий Qdrant или nil, если Qdrant не настроен.
func (d *Deps) VectorRepo() (*qdrantRepo.VectorRepo, error) {
	client, err := d.Qdrant()
	if err != nil || client == nil {
		return nil, err
	}
	return qdrantRepo.NewVectorRepo(client, d.cfg.Qdrant, d.logger), nil
}

// IndexBuilder выбирает реализацию индекса по INDEX_BACKEND.
func (d *Deps) IndexBuilder() (usecase.IndexBuilder, error) {
	if d.cfg.Recommend.IndexBackend != config.IndexBackendQdrant {
		return index.NewBuilder(), nil
	}

	repo, err := d.VectorRepo()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	return qdrantRepo.NewIndexBuilder(repo, d.logger), nil
}

// FeatureExtractor подключается к серверу модели. Соединение ленивое, недоступный
// сервер не мешает старту.
func (d *Deps) FeatureExtractor() (*features.Extractor, error) {
	conn, err := ml_service.Dial(d.cfg.Ml)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	d.closer.AddErr("ml-service", conn.Close)

	ml := ml_service.NewMLService(conn, d.cfg.Ml, d.logger)
	return features.NewExtractor(ml, d.logger), nil
}

func (d *Deps) RecommendUC(ctx context.Context) (*usecase.RecommendUseCase, error) {
	loader, err := d.CatalogLoader()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	builder, err := d.IndexBuilder()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	extractor, err := d.FeatureExtractor()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var cache usecase.RecommendationCache
	redisClient, err := d.Redis(ctx)
	if err != nil {
		// кэш не обязателен
		d.logger.Warnf("redis unavailable, recommendation cache disabled: %v", err)
	} else if redisClient != nil {
		cache = redis.NewRecommendationCache(redisClient, d.cfg.Recommend.CacheTTL)
	}

	var publisher usecase.EventPublisher
	if d.cfg.Kafka != nil {
		producer := kafka.NewProducer(d.logger, d.cfg.Kafka)
		if err := producer.EnsureTopic(initTimeout); err != nil {
			d.logger.Warnf("kafka topic check failed: %v", err)
		}
		d.closer.AddErr("kafka", producer.Close)
		publisher = producer
	}

	opts := usecase.RecommendOptions{
		Neighbors: d.cfg.Recommend.Neighbors,
		Results:   d.cfg.Recommend.Results,
		SkipSelf:  d.cfg.Recommend.SkipSelf,
	}

	return usecase.NewRecommendUC(
		loader,
		builder,
		imaging.NewDecoder(d.cfg.Recommend.ImageSize),
		extractor,
		cache,
		publisher,
		opts,
		d.logger,
	), nil
}

// ProductUC возвращает nil, если PostgreSQL не настроен.
func (d *Deps) ProductUC(ctx context.Context) (*usecase.ProductUseCase, error) {
	db, err := d.DB()
	if err != nil || db == nil {
		return nil, err
	}

	var cacheRepo usecase.CacheRepository
	redisClient, err := d.Redis(ctx)
	if err != nil {
		d.logger.Warnf("redis unavailable, product cache disabled: %v", err)
	} else if redisClient != nil {
		cacheRepo = redis.NewCacheRepo(redisClient, redisConv.ProductInfoConv{}, d.cfg.Redis, d.logger)
	}

	return usecase.NewProductUC(
		pgdb.NewProductRepo(db.Pool),
		pgdb.NewCategoryRepo(),
		db.Pool,
		cacheRepo,
		d.logger,
	), nil
}

// CatalogUC собирает операции над каталогом для организатора. shutdownCtx ограничивает
// фоновую очистку загруженных объектов.
func (d *Deps) CatalogUC(ctx context.Context, shutdownCtx context.Context) (*usecase.CatalogUseCase, *minioInfra.MinioInfrastructure, error) {
	loader, err := d.CatalogLoader()
	if err != nil {
		return nil, nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var vectorStore usecase.VectorStore
	repo, err := d.VectorRepo()
	if err != nil {
		return nil, nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if repo != nil {
		vectorStore = repo
	}

	var (
		objectStore usecase.CatalogObjectStore
		infra       *minioInfra.MinioInfrastructure
	)
	objects, err := d.BucketObjects(ctx)
	if err != nil {
		return nil, nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if objects != nil {
		infra = minioInfra.NewMinioInfrastructure(objects, d.logger, shutdownCtx)
		objectStore = infra
	}

	uc := usecase.NewCatalogUC(
		loader,
		vectorStore,
		objectStore,
		d.cfg.Catalog.FeaturesFile,
		d.cfg.Catalog.FilenamesFile,
		d.logger,
	)
	return uc, infra, nil
}

func initPGDB(logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		logger.Errorf(err, "failed to run migrations")
		db.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.Ping(); err != nil {
		logger.Errorf(err, "failed to ping database")
		db.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
