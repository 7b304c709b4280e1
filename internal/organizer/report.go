package organizer

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Report — итог запуска. Ошибки по отдельным файлам копятся здесь и не прерывают обработку.
type Report struct {
	mu sync.Mutex

	Processed int
	Copied    map[string]int
	Moved     int
	Skipped   int
	Failed    int
	Errors    []string
}

func NewReport() *Report {
	return &Report{Copied: make(map[string]int)}
}

func (r *Report) processed() {
	r.mu.Lock()
	r.Processed++
	r.mu.Unlock()
}

func (r *Report) copied(bucket string) {
	r.mu.Lock()
	r.Copied[bucket]++
	r.mu.Unlock()
}

func (r *Report) moved() {
	r.mu.Lock()
	r.Moved++
	r.mu.Unlock()
}

func (r *Report) skipped(path, reason string) {
	r.mu.Lock()
	r.Skipped++
	r.Errors = append(r.Errors, fmt.Sprintf("%s: skipped: %s", path, reason))
	r.mu.Unlock()
}

func (r *Report) failed(path string, err error) {
	r.mu.Lock()
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", path, err))
	r.mu.Unlock()
}

// TotalCopied возвращает число скопированных файлов по всем корзинам.
func (r *Report) TotalCopied() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, n := range r.Copied {
		total += n
	}
	return total
}

// Print выводит сводку в w. Корзины сортируются по имени.
func (r *Report) Print(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(w, "Processed: %d\n", r.Processed)
	if len(r.Copied) > 0 {
		buckets := make([]string, 0, len(r.Copied))
		for b := range r.Copied {
			buckets = append(buckets, b)
		}
		sort.Strings(buckets)

		fmt.Fprintln(w, "Copied:")
		for _, b := range buckets {
			fmt.Fprintf(w, "  %-16s %d\n", b, r.Copied[b])
		}
	}
	if r.Moved > 0 {
		fmt.Fprintf(w, "Moved:     %d\n", r.Moved)
	}
	fmt.Fprintf(w, "Skipped:   %d\n", r.Skipped)
	fmt.Fprintf(w, "Failed:    %d\n", r.Failed)

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, msg := range r.Errors {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}
}
