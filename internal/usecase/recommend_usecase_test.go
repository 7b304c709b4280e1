package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type fakeLoader struct {
	mu      sync.Mutex
	catalog *domain.Catalog
	err     error
	calls   atomic.Int32
	delay   time.Duration
}

func (f *fakeLoader) Load(ctx context.Context) (*domain.Catalog, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.catalog, f.err
}

func (f *fakeLoader) set(c *domain.Catalog, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalog, f.err = c, err
}

type bruteIndex struct {
	catalog *domain.Catalog
}

func (b *bruteIndex) Search(_ context.Context, q domain.Vector, k int) ([]domain.Neighbor, error) {
	out := make([]domain.Neighbor, 0, b.catalog.Len())
	for i := 0; i < b.catalog.Len(); i++ {
		d, err := domain.EuclideanDistance(q, b.catalog.Vector(i))
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Neighbor{Position: i, Distance: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}

func (b *bruteIndex) Len() int { return b.catalog.Len() }

type bruteBuilder struct{}

func (bruteBuilder) Build(_ context.Context, c *domain.Catalog) (SimilarityIndex, error) {
	return &bruteIndex{catalog: c}, nil
}

// fakeDecoder кладет первый байт данных в пиксель, чтобы экстрактор мог выбрать вектор.
type fakeDecoder struct{}

func (fakeDecoder) Decode(data []byte) (*domain.PixelArray, error) {
	if len(data) == 0 || data[0] == 0xFF {
		return nil, errors.New("unknown format")
	}
	p := domain.NewPixelArray(1, 1, 3)
	p.Set(0, 0, 0, data[0])
	return p, nil
}

type fakeExtractor struct {
	vectors map[uint8]domain.Vector
	dim     int
	err     error
}

func (f *fakeExtractor) Extract(_ context.Context, p *domain.PixelArray) (domain.Vector, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[p.At(0, 0, 0)], nil
}

func (f *fakeExtractor) Describe(context.Context) (*ModelInfo, error) {
	return &ModelInfo{Name: "test", Version: "v1", FeatureDim: f.dim, InputSize: 224}, nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]int64
}

func (m *memCache) Get(_ context.Context, key string) ([]int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, ok := m.data[key]
	return ids, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = ids
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.RecommendationServed
}

func (p *recordingPublisher) PublishRecommendation(_ context.Context, ev *domain.RecommendationServed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

// Каталог из 7 точек на оси X: позиция i имеет координату i.
func lineCatalog(t *testing.T, filenames []string) *domain.Catalog {
	t.Helper()
	data := make([]float64, 0, len(filenames)*2)
	for i := range filenames {
		data = append(data, float64(i), 0)
	}
	c, err := domain.NewCatalog(mat.NewDense(len(filenames), 2, data), filenames)
	require.NoError(t, err)
	return c
}

func defaultFilenames() []string {
	return []string{"100.jpg", "101.jpg", "102.jpg", "103.jpg", "104.jpg", "105.jpg", "106.jpg"}
}

func newTestUC(loader CatalogLoader, ex *fakeExtractor, cache RecommendationCache, pub EventPublisher, skipSelf bool) *RecommendUseCase {
	return NewRecommendUC(loader, bruteBuilder{}, fakeDecoder{}, ex, cache, pub, RecommendOptions{
		Neighbors:   6,
		Results:     5,
		SkipSelf:    skipSelf,
		LoadTimeout: time.Second,
	}, logger.Nop())
}

func axisExtractor() *fakeExtractor {
	return &fakeExtractor{
		dim: 2,
		vectors: map[uint8]domain.Vector{
			1: {0, 0},
			2: {6, 0},
		},
	}
}

func TestRecommend_SkipsNearestAndReturnsFive(t *testing.T) {
	loader := &fakeLoader{catalog: lineCatalog(t, defaultFilenames())}
	uc := newTestUC(loader, axisExtractor(), nil, nil, true)

	res, err := uc.Recommend(context.Background(), NewRecommendReq([]byte{1}, "q.jpg", "rid"))
	require.NoError(t, err)
	require.Equal(t, []int64{101, 102, 103, 104, 105}, res.ProductIDs)
	require.False(t, res.Cached)
	require.Equal(t, domain.StateReady, uc.State())
}

func TestRecommend_WithoutSkipSelf(t *testing.T) {
	loader := &fakeLoader{catalog: lineCatalog(t, defaultFilenames())}
	uc := newTestUC(loader, axisExtractor(), nil, nil, false)

	res, err := uc.Recommend(context.Background(), NewRecommendReq([]byte{2}, "q.jpg", ""))
	require.NoError(t, err)
	require.Equal(t, []int64{106, 105, 104, 103, 102}, res.ProductIDs)
}

func TestRecommend_SkipsUnparsableFilenames(t *testing.T) {
	names := defaultFilenames()
	names[2] = "images/abc.jpg"
	loader := &fakeLoader{catalog: lineCatalog(t, names)}
	uc := newTestUC(loader, axisExtractor(), nil, nil, true)

	res, err := uc.Recommend(context.Background(), NewRecommendReq([]byte{1}, "q.jpg", ""))
	require.NoError(t, err)
	require.Equal(t, []int64{101, 103, 104, 105}, res.ProductIDs)
}

func TestRecommend_NoValidRecommendations(t *testing.T) {
	names := []string{"a.jpg", "b.jpg", "c.jpg"}
	loader := &fakeLoader{catalog: lineCatalog(t, names)}
	uc := newTestUC(loader, axisExtractor(), nil, nil, true)

	_, err := uc.Recommend(context.Background(), NewRecommendReq([]byte{1}, "q.jpg", ""))
	require.ErrorIs(t, err, e.ErrNoRecommendations)
}

func TestRecommend_SmallCatalogReturnsFewerResults(t *testing.T) {
	loader := &fakeLoader{catalog: lineCatalog(t, []string{"1.jpg", "2.jpg", "3.jpg"})}
	uc := newTestUC(loader, axisExtractor(), nil, nil, true)

	res, err := uc.Recommend(context.Background(), NewRecommendReq([]byte{1}, "q.jpg", ""))
	require.NoError(t, err)
	require.Equal(t, []int64{2, 3}, res.ProductIDs)
}

func TestRecommend_InvalidImage(t *testing.T) {
	loader := &fakeLoader{catalog: lineCatalog(t, defaultFilenames())}
	uc := newTestUC(loader, axisExtractor(), nil, nil, true)

	_, err := uc.Recommend(context.Background(), NewRecommendReq([]byte{0xFF}, "q.txt", ""))
	require.ErrorIs(t, err, e.ErrInvalidImage)
	require.NotErrorIs(t, err, e.ErrProcessing)
}

func TestRecommend_ExtractorErrors(t *testing.T) {
	loader := &fakeLoader{catalog: lineCatalog(t, defaultFilenames())}

	ex := axisExtractor()
	ex.err = e.ErrUnsupportedChannels
	uc := newTestUC(loader, ex, nil, nil, true)
	_, err := uc.Recommend(context.Background(), NewRecommendReq([]byte{1}, "q.png", ""))
	require.ErrorIs(t, err, e.ErrInvalidImage)

	ex.err = errors.New("backbone exploded")
	_, err = uc.Recommend(context.Background(), NewRecommendReq([]byte{1}, "q.png", ""))
	require.ErrorIs(t, err, e.ErrProcessing)
}

func TestRecommend_SelfHealsWhenCatalogAppears(t *testing.T) {
	loader := &fakeLoader{err: e.ErrCatalogNotFound}
	uc := newTestUC(loader, axisExtractor(), nil, nil, true)

	_, err := uc.Recommend(context.Background(), NewRecommendReq([]byte{1}, "q.jpg", ""))
	require.ErrorIs(t, err, e.ErrServiceUnavailable)
	require.ErrorIs(t, err, e.ErrCatalogNotFound)
	require.Equal(t, domain.StateUnavailable, uc.State())

	loader.set(lineCatalog(t, defaultFilenames()), nil)

	res, err := uc.Recommend(context.Background(), NewRecommendReq([]byte{1}, "q.jpg", ""))
	require.NoError(t, err)
	require.Len(t, res.ProductIDs, 5)
	require.Equal(t, domain.StateReady, uc.State())
	require.EqualValues(t, 2, loader.calls.Load())
}

func TestRecommend_DimensionMismatchIsUnavailable(t *testing.T) {
	loader := &fakeLoader{catalog: lineCatalog(t, defaultFilenames())}
	ex := axisExtractor()
	ex.dim = 2048
	uc := newTestUC(loader, ex, nil, nil, true)

	err := uc.EnsureReady(context.Background())
	require.ErrorIs(t, err, e.ErrServiceUnavailable)
	require.ErrorIs(t, err, e.ErrDimensionMismatch)
}

func TestEnsureReady_ConcurrentCallersLoadOnce(t *testing.T) {
	loader := &fakeLoader{catalog: lineCatalog(t, defaultFilenames()), delay: 50 * time.Millisecond}
	uc := newTestUC(loader, axisExtractor(), nil, nil, true)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- uc.EnsureReady(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, loader.calls.Load())

	require.NoError(t, uc.EnsureReady(context.Background()))
	require.EqualValues(t, 1, loader.calls.Load())
}

func TestEnsureReady_SurvivesCancelledCaller(t *testing.T) {
	loader := &fakeLoader{catalog: lineCatalog(t, defaultFilenames())}
	uc := newTestUC(loader, axisExtractor(), nil, nil, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, uc.EnsureReady(ctx))
	require.Equal(t, domain.StateReady, uc.State())
}

func TestRecommend_CacheAndEvents(t *testing.T) {
	loader := &fakeLoader{catalog: lineCatalog(t, defaultFilenames())}
	cache := &memCache{data: map[string][]int64{}}
	pub := &recordingPublisher{}
	uc := newTestUC(loader, axisExtractor(), cache, pub, true)

	first, err := uc.Recommend(context.Background(), NewRecommendReq([]byte{1}, "q.jpg", "r1"))
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := uc.Recommend(context.Background(), NewRecommendReq([]byte{1}, "q.jpg", "r2"))
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.ProductIDs, second.ProductIDs)

	require.Len(t, pub.events, 2)
	require.Equal(t, "r1", pub.events[0].RequestID)
	require.False(t, pub.events[0].Cached)
	require.True(t, pub.events[1].Cached)
	require.Equal(t, "v1", pub.events[1].ModelVersion)
	require.Len(t, pub.events[0].ImageSHA256, 64)
}
