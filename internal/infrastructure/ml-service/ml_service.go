package ml_service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/visual-recommender/internal/cfg"
	"github.com/DRSN-tech/visual-recommender/internal/domain"
	"github.com/DRSN-tech/visual-recommender/internal/metrics"
	"github.com/DRSN-tech/visual-recommender/internal/usecase"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/jitter"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	gobreaker "github.com/sony/gobreaker/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	forwardMethod  = "/ml.v1.FeatureBackbone/Forward"
	describeMethod = "/ml.v1.FeatureBackbone/Describe"

	breakerName = "feature-backbone"
)

// MLService клиент для взаимодействия с внешним сервером модели (ml.v1.FeatureBackbone).
// Вызовы ограничены семафором, повторяются с экспоненциальной задержкой и
// проходят через circuit breaker.
type MLService struct {
	conn       grpc.ClientConnInterface
	model      string
	sem        chan struct{}
	maxRetries int
	timeout    time.Duration
	backoff    *jitter.Backoff
	breaker    *gobreaker.CircuitBreaker[wireMessage]
	logger     logger.Logger
}

// Dial открывает соединение с сервером модели. Соединение ленивое: недоступный сервер
// не ломает старт, ошибка проявится на первом вызове.
func Dial(cfg *cfg.MLServiceCfg) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(cfg.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.ForceCodec(wireCodec{}),
			grpc.MaxCallRecvMsgSize(64<<20),
			grpc.MaxCallSendMsgSize(64<<20),
		),
	)
	if err != nil {
		return nil, e.Wrap("ml_service.Dial", err)
	}
	return conn, nil
}

func NewMLService(conn grpc.ClientConnInterface, cfg *cfg.MLServiceCfg, logger logger.Logger) *MLService {
	const (
		baseJitter = 200 * time.Millisecond
		maxJitter  = 5 * time.Second
	)

	maxConcurrent := max(cfg.MaxConcurrent, 1)
	maxRetries := max(cfg.MaxRetries, 1)

	m := &MLService{
		conn:       conn,
		model:      cfg.Model,
		sem:        make(chan struct{}, maxConcurrent),
		maxRetries: maxRetries,
		timeout:    cfg.Timeout,
		backoff:    jitter.NewBackoff(baseJitter, maxJitter),
		logger:     logger,
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	m.breaker = gobreaker.NewCircuitBreaker[wireMessage](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Ошибки клиента не говорят о состоянии сервера модели
			return err == nil || isClientError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.logger.Warnf("circuit breaker %s: %s -> %s", name, from, to)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return m
}

// Forward выполняет прямой проход сети по входному тензору.
func (m *MLService) Forward(ctx context.Context, input *domain.Tensor) (*domain.Tensor, error) {
	const op = "MLService.Forward"

	if err := input.Validate(); err != nil {
		return nil, e.Wrap(op, err)
	}

	req := &ForwardRequest{
		Model: m.model,
		Shape: toInt64s(input.Shape),
		Data:  input.Data,
	}

	res := &ForwardResponse{}
	if err := m.invoke(ctx, forwardMethod, req, res); err != nil {
		return nil, e.Wrap(op, err)
	}

	out := &domain.Tensor{Shape: toInts(res.Shape), Data: res.Data}
	if err := out.Validate(); err != nil {
		return nil, e.Wrap(op, err)
	}

	return out, nil
}

// Describe запрашивает у сервера параметры модели.
func (m *MLService) Describe(ctx context.Context) (*usecase.ModelInfo, error) {
	const op = "MLService.Describe"

	res := &DescribeResponse{}
	if err := m.invoke(ctx, describeMethod, &DescribeRequest{Model: m.model}, res); err != nil {
		return nil, e.Wrap(op, err)
	}

	name := res.Name
	if name == "" {
		name = m.model
	}

	return &usecase.ModelInfo{
		Name:       name,
		Version:    res.Version,
		FeatureDim: int(res.FeatureDim),
		InputSize:  int(res.InputSize),
	}, nil
}

// invoke выполняет вызов с retry-логикой и экспоненциальной задержкой.
func (m *MLService) invoke(ctx context.Context, method string, req, res wireMessage) error {
	var lastErr error
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		err := m.invokeOnce(ctx, method, req, res)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == m.maxRetries-1 {
			break
		}

		m.logger.Warnf("backbone call %s failed, retrying (attempt %d): %v", method, attempt+1, err)
		if err := m.backoff.Wait(ctx, attempt); err != nil {
			return err
		}
	}

	if errors.Is(lastErr, gobreaker.ErrOpenState) || errors.Is(lastErr, gobreaker.ErrTooManyRequests) {
		return e.Join(e.ErrBackboneUnavailable, lastErr)
	}
	return fmt.Errorf("backbone call %s: %w", method, lastErr)
}

func (m *MLService) invokeOnce(ctx context.Context, method string, req, res wireMessage) error {
	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	start := time.Now()
	_, err := m.breaker.Execute(func() (wireMessage, error) {
		return res, m.conn.Invoke(ctx, method, req, res)
	})

	switch {
	case err == nil:
		metrics.RecordBackboneCall(method, "success", time.Since(start))
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordBackboneCall(method, "rejected", time.Since(start))
	default:
		metrics.RecordBackboneCall(method, "failure", time.Since(start))
	}

	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, gobreaker.ErrOpenState) {
		return false
	}

	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}

func isClientError(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition, codes.OutOfRange:
		return true
	}
	return false
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func toInt64s(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func toInts(in []int64) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
