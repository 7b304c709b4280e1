package http

import (
	"net/http"

	_ "github.com/DRSN-tech/visual-recommender/docs" // Регистрация swagger-документации
	"github.com/DRSN-tech/visual-recommender/internal/cfg"
	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router        *chi.Mux
	cfg           *cfg.HTTPConfig
	maxUploadSize int64
	logger        logger.Logger
}

func NewRouter(router *chi.Mux, cfg *cfg.HTTPConfig, maxUploadSize int64, logger logger.Logger) *Router {
	return &Router{router: router, cfg: cfg, maxUploadSize: maxUploadSize, logger: logger}
}

// Init регистрирует маршруты. prUC может быть nil, если PostgreSQL не настроен.
func (r *Router) Init(recUC usecase.RecommendUC, prUC usecase.ProductUC) {
	r.router.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(r.logger),
		middleware.Recoverer,
		corsMiddleware(r.cfg.CORSAllowedOrigins),
	)

	r.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.router.Get("/readyz", readinessHandler(recUC))
	r.router.Handle("/metrics", promhttp.Handler())
	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	recHandler := NewRecommendHandler(recUC, r.maxUploadSize, r.logger)
	limit := rateLimit(r.cfg.RateLimitRequests, r.cfg.RateLimitWindow)

	r.router.Route("/api", func(api chi.Router) {
		// маршрут, который ожидает фронтенд
		api.With(limit).Post("/recommend", recHandler.recommend)

		api.Route("/v1", func(v1 chi.Router) {
			v1.With(limit).Post("/recommendations", recHandler.recommend)

			if prUC != nil {
				prHandler := NewProductHandler(prUC, r.logger)
				registerProductRoutes(v1, prHandler)
			}
		})
	})
}

func registerProductRoutes(router chi.Router, prHandler *ProductHandler) {
	router.Route("/products", func(pr chi.Router) {
		pr.Get("/", prHandler.getProducts)
	})
}

// readinessHandler отдает состояние шлюза рекомендаций. Загрузку он не запускает.
func readinessHandler(recUC usecase.RecommendUC) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		state := recUC.State()
		status := http.StatusOK
		if state != domain.StateReady {
			status = http.StatusServiceUnavailable
		}
		WriteSuccess(w, status, map[string]string{"state": state.String()})
	}
}
