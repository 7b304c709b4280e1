package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/jimlawless/whereami"
)

const (
	CatalogSourceFS    = "fs"
	CatalogSourceMinio = "minio"

	IndexBackendMemory = "memory"
	IndexBackendQdrant = "qdrant"
)

// Config — конфигурация приложения. Опциональные бэкенды (MinIO, Qdrant, Redis, Kafka, PostgreSQL)
// равны nil, если их адрес не задан в окружении.
type Config struct {
	Http      *HTTPConfig
	Catalog   *CatalogCfg
	Recommend *RecommendCfg
	Ml        *MLServiceCfg
	Minio     *MinIOCfg
	Qdrant    *QdrantCfg
	Redis     *RedisCfg
	Kafka     *KafkaCfg
	Db        *PGDBCfg
}

type HTTPConfig struct {
	Port               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	CORSAllowedOrigins []string
	RateLimitRequests  int // 0 отключает ограничение
	RateLimitWindow    time.Duration
}

// CatalogCfg описывает, откуда брать таблицу признаков каталога и список файлов.
type CatalogCfg struct {
	Source        string // fs | minio
	Dir           string // каталог на диске (Source=fs) или префикс объектов (Source=minio)
	FeaturesFile  string // .npy с матрицей [N, D]
	FilenamesFile string // .json массив строк или текст построчно
}

type RecommendCfg struct {
	Neighbors     int  // сколько соседей запрашивать у индекса
	Results       int  // сколько ID вернуть клиенту
	SkipSelf      bool // отбрасывать ближайшего соседа (считается самим запросом)
	ImageSize     int
	MaxUploadSize int64
	IndexBackend  string // memory | qdrant
	CacheTTL      time.Duration
}

type MLServiceCfg struct {
	Addr          string
	Model         string
	MaxConcurrent int
	MaxRetries    int
	Timeout       time.Duration
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Бакет с артефактами каталога
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
}

type QdrantCfg struct {
	Port                 int
	Host                 string
	ApiKey               string
	QdrantCollectionName string // имя коллекции в Qdrant
	UseTLS               bool
	UpsertBatchSize      int
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	ProductTTL  time.Duration
}

type KafkaCfg struct {
	Topic             string
	Brokers           []string
	BatchTimeout      time.Duration
	Partitions        int
	ReplicationFactor int
}

type PGDBCfg struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
func Load(log logger.Logger) (*Config, error) {
	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	catalog, err := loadCatalogCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	recommend, err := loadRecommendCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	ml, err := loadMLServiceCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	qdrant, err := loadQdrantCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	db, err := loadPGDBCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	c := &Config{
		Http:      http,
		Catalog:   catalog,
		Recommend: recommend,
		Ml:        ml,
		Minio:     minio,
		Qdrant:    qdrant,
		Redis:     redis,
		Kafka:     kafka,
		Db:        db,
	}

	if err := c.validate(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return c, nil
}

// validate проверяет согласованность между секциями.
func (c *Config) validate() error {
	if c.Catalog.Source == CatalogSourceMinio && c.Minio == nil {
		return fmt.Errorf("CATALOG_SOURCE=minio requires MINIO_ENDPOINT: %w", e.ErrIncorrectEnvVariable)
	}
	if c.Recommend.IndexBackend == IndexBackendQdrant && c.Qdrant == nil {
		return fmt.Errorf("INDEX_BACKEND=qdrant requires QDRANT_HOST: %w", e.ErrIncorrectEnvVariable)
	}
	return nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort              = "8000"
		defaultReadTimeout       = 15 * time.Second
		defaultWriteTimeout      = 60 * time.Second
		defaultIdleTimeout       = 60 * time.Second
		defaultCORSOrigins       = "http://localhost:5173"
		defaultRateLimitRequests = 60
		defaultRateLimitWindow   = time.Minute
	)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	rateLimit, err := parseIntEnv("RATE_LIMIT_REQUESTS", defaultRateLimitRequests)
	if err != nil {
		log.Errorf(err, "invalid RATE_LIMIT_REQUESTS")
		return nil, err
	}

	rateWindow, err := parseDurationEnv("RATE_LIMIT_WINDOW", defaultRateLimitWindow)
	if err != nil {
		log.Errorf(err, "invalid RATE_LIMIT_WINDOW")
		return nil, err
	}

	return &HTTPConfig{
		Port:               getEnvOrDefault("HTTP_PORT", defaultPort),
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		IdleTimeout:        idleTimeout,
		CORSAllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", defaultCORSOrigins)),
		RateLimitRequests:  rateLimit,
		RateLimitWindow:    rateWindow,
	}, nil
}

func loadCatalogCfg() (*CatalogCfg, error) {
	const (
		defaultDir           = "ML"
		defaultFeaturesFile  = "images_features.npy"
		defaultFilenamesFile = "filenames.json"
	)

	source := strings.ToLower(getEnvOrDefault("CATALOG_SOURCE", CatalogSourceFS))
	if source != CatalogSourceFS && source != CatalogSourceMinio {
		return nil, e.Wrap("CATALOG_SOURCE", e.ErrIncorrectEnvVariable)
	}

	return &CatalogCfg{
		Source:        source,
		Dir:           getEnvOrDefault("CATALOG_DIR", defaultDir),
		FeaturesFile:  getEnvOrDefault("CATALOG_FEATURES_FILE", defaultFeaturesFile),
		FilenamesFile: getEnvOrDefault("CATALOG_FILENAMES_FILE", defaultFilenamesFile),
	}, nil
}

func loadRecommendCfg(log logger.Logger) (*RecommendCfg, error) {
	const (
		defaultNeighbors     = 6
		defaultResults       = 5
		defaultSkipSelf      = true
		defaultImageSize     = 224
		defaultMaxUploadSize = 15 << 20
		defaultCacheTTL      = 10 * time.Minute
	)

	neighbors, err := parseIntEnv("RECOMMEND_NEIGHBORS", defaultNeighbors)
	if err != nil {
		log.Errorf(err, "invalid RECOMMEND_NEIGHBORS")
		return nil, err
	}

	results, err := parseIntEnv("RECOMMEND_RESULTS", defaultResults)
	if err != nil {
		log.Errorf(err, "invalid RECOMMEND_RESULTS")
		return nil, err
	}

	skipSelf, err := parseBoolEnv("RECOMMEND_SKIP_SELF", defaultSkipSelf)
	if err != nil {
		log.Errorf(err, "invalid RECOMMEND_SKIP_SELF")
		return nil, err
	}

	maxUpload, err := parseIntEnv("MAX_UPLOAD_SIZE", defaultMaxUploadSize)
	if err != nil {
		log.Errorf(err, "invalid MAX_UPLOAD_SIZE")
		return nil, err
	}

	cacheTTL, err := parseDurationEnv("RECOMMEND_CACHE_TTL", defaultCacheTTL)
	if err != nil {
		log.Errorf(err, "invalid RECOMMEND_CACHE_TTL")
		return nil, err
	}

	backend := strings.ToLower(getEnvOrDefault("INDEX_BACKEND", IndexBackendMemory))
	if backend != IndexBackendMemory && backend != IndexBackendQdrant {
		return nil, e.Wrap("INDEX_BACKEND", e.ErrIncorrectEnvVariable)
	}

	if neighbors <= 0 || results <= 0 {
		return nil, e.Wrap("RECOMMEND_NEIGHBORS/RECOMMEND_RESULTS", e.ErrIncorrectEnvVariable)
	}

	return &RecommendCfg{
		Neighbors:     neighbors,
		Results:       results,
		SkipSelf:      skipSelf,
		ImageSize:     defaultImageSize,
		MaxUploadSize: int64(maxUpload),
		IndexBackend:  backend,
		CacheTTL:      cacheTTL,
	}, nil
}

func loadMLServiceCfg(log logger.Logger) (*MLServiceCfg, error) {
	const (
		defaultHost          = "ml-service"
		defaultPort          = "50051"
		defaultModel         = "resnet50-imagenet-gmp"
		defaultMaxConcurrent = 8
		defaultMaxRetries    = 3
		defaultTimeout       = 20 * time.Second
	)

	maxConcurrent, err := parseIntEnv("ML_MAX_CONCURRENT", defaultMaxConcurrent)
	if err != nil {
		log.Errorf(err, "invalid ML_MAX_CONCURRENT")
		return nil, err
	}

	maxRetries, err := parseIntEnv("ML_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid ML_MAX_RETRIES")
		return nil, err
	}

	timeout, err := parseDurationEnv("ML_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid ML_TIMEOUT")
		return nil, err
	}

	host := getEnvOrDefault("ML_HOST", defaultHost)
	port := getEnvOrDefault("ML_PORT", defaultPort)

	return &MLServiceCfg{
		Addr:          host + ":" + port,
		Model:         getEnvOrDefault("ML_MODEL", defaultModel),
		MaxConcurrent: maxConcurrent,
		MaxRetries:    maxRetries,
		Timeout:       timeout,
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL = false
		defaultBucket = "catalog"
	)

	endpoint := getEnv("MINIO_ENDPOINT")
	if endpoint == "" {
		return nil, nil
	}

	useSSL, err := parseBoolEnv("MINIO_USE_SSL", defaultUseSSL)
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint:     endpoint,
		BucketName:        getEnvOrDefault("BUCKET_NAME", defaultBucket),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
	}, nil
}

func loadQdrantCfg(log logger.Logger) (*QdrantCfg, error) {
	const (
		defaultQdrantGRPCPort = 6334
		defaultUseTLS         = false
		defaultCollection     = "catalog_images"
		defaultBatchSize      = 256
	)

	host := getEnv("QDRANT_HOST")
	if host == "" {
		return nil, nil
	}

	port, err := parseIntEnv("QDRANT_GRPC_PORT", defaultQdrantGRPCPort)
	if err != nil {
		log.Errorf(err, "invalid QDRANT_GRPC_PORT")
		return nil, err
	}

	useTLS, err := parseBoolEnv("QDRANT_USE_TLS", defaultUseTLS)
	if err != nil {
		log.Errorf(err, "invalid QDRANT_USE_TLS")
		return nil, err
	}

	batch, err := parseIntEnv("QDRANT_UPSERT_BATCH", defaultBatchSize)
	if err != nil {
		log.Errorf(err, "invalid QDRANT_UPSERT_BATCH")
		return nil, err
	}

	return &QdrantCfg{
		Host:                 host,
		Port:                 port,
		ApiKey:               getEnv("QDRANT__SERVICE__API_KEY"),
		QdrantCollectionName: getEnvOrDefault("COLLECTION_NAME", defaultCollection),
		UseTLS:               useTLS,
		UpsertBatchSize:      batch,
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultProductTTL   = 3 * time.Minute
	)

	addr := getEnv("REDIS_ADDR")
	if addr == "" {
		return nil, nil
	}

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	productTTL, err := parseDurationEnv("PRODUCT_TTL", defaultProductTTL)
	if err != nil {
		log.Errorf(err, "invalid PRODUCT_TTL")
		return nil, err
	}

	return &RedisCfg{
		Addr:        addr,
		Password:    getEnv("REDIS_PASSWORD"),
		User:        getEnv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     max(readTimeout, writeTimeout),
		ProductTTL:  productTTL,
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultTopic             = "recommendation.served"
		defaultBatchTimeout      = 500 * time.Millisecond
		defaultPartitions        = 3
		defaultReplicationFactor = 1
	)

	brokers := splitList(getEnv("KAFKA_BROKERS"))
	if len(brokers) == 0 {
		return nil, nil
	}

	batchTimeout, err := parseDurationEnv("KAFKA_BATCH_TIMEOUT", defaultBatchTimeout)
	if err != nil {
		return nil, e.Wrap("KAFKA_BATCH_TIMEOUT", err)
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, err
	}

	replication, err := parseIntEnv("KAFKA_REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, err
	}

	return &KafkaCfg{
		Brokers:           brokers,
		Topic:             getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		BatchTimeout:      batchTimeout,
		Partitions:        partitions,
		ReplicationFactor: replication,
	}, nil
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost    = "localhost"
		defaultPort    = "5432"
		defaultSSLMode = "disable"
	)

	user := getEnv("POSTGRES_USER")
	if user == "" {
		return nil, nil
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		err := fmt.Errorf("POSTGRES_DB is required")
		log.Errorf(err, "missing POSTGRES_DB")
		return nil, err
	}

	return &PGDBCfg{
		Host:     getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:     getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:     user,
		Password: password,
		DBName:   dbName,
		SSLMode:  getEnvOrDefault("SSL_MODE", defaultSSLMode),
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.Wrap(key, e.ErrIncorrectEnvVariable)
	}

	return intValue, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue, e.Wrap(key, e.ErrIncorrectEnvVariable)
	}

	return b, nil
}

// splitList режет список через запятую, отбрасывая пустые элементы.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
