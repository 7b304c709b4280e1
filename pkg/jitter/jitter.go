// Package jitter считает задержки между повторными попытками: экспоненциальный рост
// с ограничением сверху и случайной добавкой, чтобы клиенты не повторяли запросы синхронно.
package jitter

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// DefaultFactor — доля задержки, которая может быть добавлена случайно (50%).
const DefaultFactor = 0.5

// Backoff описывает политику задержек. Нулевое значение непригодно, используйте NewBackoff.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{
		Base:   base,
		Max:    max,
		Factor: DefaultFactor,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithSource подменяет генератор случайных чисел (для детерминированных тестов).
func (b *Backoff) WithSource(src rand.Source) *Backoff {
	b.mu.Lock()
	b.rng = rand.New(src)
	b.mu.Unlock()
	return b
}

// Delay возвращает задержку перед попыткой attempt (нумерация с нуля).
// Результат лежит в диапазоне [d, d*(1+Factor)], где d = min(Base*2^attempt, Max).
func (b *Backoff) Delay(attempt int) time.Duration {
	d := b.Base
	for i := 0; i < attempt && d < b.Max; i++ {
		d *= 2
	}
	if d > b.Max {
		d = b.Max
	}

	b.mu.Lock()
	extra := b.rng.Float64() * b.Factor * float64(d)
	b.mu.Unlock()

	return d + time.Duration(extra)
}

// Wait ждет Delay(attempt) либо отмены контекста.
func (b *Backoff) Wait(ctx context.Context, attempt int) error {
	t := time.NewTimer(b.Delay(attempt))
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
