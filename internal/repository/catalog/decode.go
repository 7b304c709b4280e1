// Package catalog читает таблицу эмбеддингов каталога (.npy) и список имен файлов
// с локального диска или из MinIO.
package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/sbinet/npyio/npy"
	"gonum.org/v1/gonum/mat"
)

// readFeatures читает двумерный массив float32/float64 формы [N, D].
func readFeatures(r io.Reader) (*mat.Dense, error) {
	npr, err := npy.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("read npy header: %w", err)
	}

	shape := npr.Header.Descr.Shape
	if len(shape) != 2 || shape[0] <= 0 || shape[1] <= 0 {
		return nil, fmt.Errorf("features shape %v, want [N, D]: %w", shape, e.ErrCatalogMismatch)
	}
	rows, cols := shape[0], shape[1]

	var data []float64
	switch npr.Header.Descr.Type {
	case "<f4", "f4", "float32":
		var raw []float32
		if err := npr.Read(&raw); err != nil {
			return nil, fmt.Errorf("read float32 features: %w", err)
		}
		data = make([]float64, len(raw))
		for i, v := range raw {
			data[i] = float64(v)
		}
	case "<f8", "f8", "float64":
		if err := npr.Read(&data); err != nil {
			return nil, fmt.Errorf("read float64 features: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported features dtype %q", npr.Header.Descr.Type)
	}

	if len(data) != rows*cols {
		return nil, fmt.Errorf("features payload has %d values, shape %v: %w", len(data), shape, e.ErrCatalogMismatch)
	}

	if npr.Header.Descr.Fortran {
		// Column-major: сначала читаем как [D, N], затем транспонируем
		var out mat.Dense
		out.CloneFrom(mat.NewDense(cols, rows, data).T())
		return &out, nil
	}

	return mat.NewDense(rows, cols, data), nil
}

// readFilenames читает JSON-массив строк (для .json) или текст по одному имени на строку.
func readFilenames(r io.Reader, name string) ([]string, error) {
	if strings.HasSuffix(strings.ToLower(name), ".json") {
		var filenames []string
		if err := json.NewDecoder(r).Decode(&filenames); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return filenames, nil
	}

	var filenames []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			filenames = append(filenames, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	return filenames, nil
}
