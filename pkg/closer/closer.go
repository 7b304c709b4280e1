// Package closer собирает функции освобождения ресурсов и вызывает их в обратном порядке.
package closer

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Func — сигнатура функции закрытия ресурса.
type Func func(ctx context.Context) error

type entry struct {
	name string
	fn   Func
}

// Closer обеспечивает потокобезопасное однократное закрытие ресурсов (LIFO).
type Closer struct {
	mu      sync.Mutex
	once    sync.Once
	entries []entry
}

func NewCloser() *Closer {
	return &Closer{}
}

// Add регистрирует функцию закрытия под именем, которое попадет в текст ошибки.
func (c *Closer) Add(name string, f Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry{name: name, fn: f})
}

// AddErr — вариант Add для методов вида Close() error.
func (c *Closer) AddErr(name string, f func() error) {
	c.Add(name, func(context.Context) error { return f() })
}

// Close вызывает зарегистрированные функции в обратном порядке.
// Если контекст истек, оставшиеся функции не вызываются и попадают в ошибку как пропущенные.
func (c *Closer) Close(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		entries := c.entries
		c.mu.Unlock()

		var errs []error
		for i := len(entries) - 1; i >= 0; i-- {
			en := entries[i]
			if ctx.Err() != nil {
				errs = append(errs, fmt.Errorf("%s: skipped: %w", en.name, ctx.Err()))
				continue
			}

			done := make(chan error, 1)
			go func() { done <- en.fn(ctx) }()

			select {
			case cerr := <-done:
				if cerr != nil {
					errs = append(errs, fmt.Errorf("%s: %w", en.name, cerr))
				}
			case <-ctx.Done():
				errs = append(errs, fmt.Errorf("%s: %w", en.name, ctx.Err()))
			}
		}

		err = errors.Join(errs...)
	})

	return err
}
