package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/visual-recommender/internal/cfg"
	v1Http "github.com/DRSN-tech/visual-recommender/internal/delivery/v1/http"
	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/closer"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const (
	shutdownTimeout = 10 * time.Second
	warmUpTimeout   = 2 * time.Minute
)

// App — HTTP-сервис рекомендаций со всеми зависимостями.
type App struct {
	cfg     *config.Config
	logger  logger.Logger
	closer  *closer.Closer
	recUC   *usecase.RecommendUseCase
	httpSrv *v1Http.Server
}

func NewApp(cfg *config.Config, logger logger.Logger) (*App, error) {
	ctx := context.Background()
	cl := closer.NewCloser()
	deps := NewDeps(cfg, logger, cl)

	fail := func(err error) (*App, error) {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := cl.Close(closeCtx); cerr != nil {
			logger.Warnf("close after failed init: %v", cerr)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	recUC, err := deps.RecommendUC(ctx)
	if err != nil {
		return fail(err)
	}

	productUC, err := deps.ProductUC(ctx)
	if err != nil {
		return fail(err)
	}

	// nil-указатель в интерфейсе не равен nil, поэтому передаем интерфейс явно
	var prUC usecase.ProductUC
	if productUC != nil {
		prUC = productUC
	}

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, cfg.Http, cfg.Recommend.MaxUploadSize, logger)
	router.Init(recUC, prUC)

	return &App{
		cfg:     cfg,
		logger:  logger,
		closer:  cl,
		recUC:   recUC,
		httpSrv: v1Http.NewServer(r, cfg.Http),
	}, nil
}

// Run запускает HTTP-сервер и блокируется до сигнала остановки или ошибки сервера.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server listening on %s", a.httpSrv.Addr())
		if err := a.httpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	warmCtx, warmCancel := context.WithTimeout(context.Background(), warmUpTimeout)
	defer warmCancel()
	go a.warmUp(warmCtx)

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}
	warmCancel()

	// === Graceful shutdown ===
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := a.httpSrv.Stop(shutdownCtx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Warnf("resources close error: %v", err)
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

// warmUp загружает каталог при старте, чтобы первый запрос не ждал загрузки.
// Ошибка не фатальна: шлюз повторит загрузку на следующем запросе.
func (a *App) warmUp(ctx context.Context) {
	start := time.Now()
	if err := a.recUC.EnsureReady(ctx); err != nil {
		a.logger.Warnf("catalog warm-up failed, will retry on request: %v", err)
		return
	}
	a.logger.Infof("catalog warm-up finished in %s", time.Since(start).Round(time.Millisecond))
}
