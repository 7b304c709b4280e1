package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"gonum.org/v1/gonum/mat"
)

// Catalog — неизменяемая таблица эмбеддингов каталога.
// Строка i матрицы соответствует файлу Filenames[i].
type Catalog struct {
	features  *mat.Dense
	filenames []string

	fpOnce      sync.Once
	fingerprint string
}

// NewCatalog проверяет позиционное соответствие таблицы и списка файлов
// и отклоняет таблицы с NaN или бесконечностями.
func NewCatalog(features *mat.Dense, filenames []string) (*Catalog, error) {
	if features == nil || len(filenames) == 0 {
		return nil, e.ErrCatalogEmpty
	}

	rows, _ := features.Dims()
	if rows != len(filenames) {
		return nil, fmt.Errorf("%d vectors vs %d filenames: %w", rows, len(filenames), e.ErrCatalogMismatch)
	}

	for i := 0; i < rows; i++ {
		for j, v := range features.RawRowView(i) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("row %d col %d is %v: %w", i, j, v, e.ErrCatalogNonFinite)
			}
		}
	}

	return &Catalog{features: features, filenames: filenames}, nil
}

// Fingerprint — SHA-256 от размерности, имен файлов и значений векторов.
// Два каталога с одинаковым отпечатком взаимозаменяемы для индекса.
func (c *Catalog) Fingerprint() string {
	c.fpOnce.Do(func() {
		h := sha256.New()
		rows, cols := c.features.Dims()

		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(rows))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(cols))
		h.Write(buf[:])

		for _, name := range c.filenames {
			h.Write([]byte(name))
			h.Write([]byte{0})
		}

		row := make([]byte, 8*cols)
		for i := 0; i < rows; i++ {
			for j, v := range c.features.RawRowView(i) {
				binary.LittleEndian.PutUint64(row[8*j:], math.Float64bits(v))
			}
			h.Write(row)
		}

		c.fingerprint = hex.EncodeToString(h.Sum(nil))
	})
	return c.fingerprint
}

// Len возвращает число позиций каталога.
func (c *Catalog) Len() int {
	return len(c.filenames)
}

// Dim возвращает размерность эмбеддинга.
func (c *Catalog) Dim() int {
	_, cols := c.features.Dims()
	return cols
}

// Vector возвращает вектор позиции i. Срез разделяет память с каталогом и не должен изменяться.
func (c *Catalog) Vector(i int) Vector {
	return c.features.RawRowView(i)
}

func (c *Catalog) Filename(i int) string {
	return c.filenames[i]
}

// ProductID разбирает идентификатор продукта из имени файла позиции i.
func (c *Catalog) ProductID(i int) (int64, error) {
	if i < 0 || i >= len(c.filenames) {
		return 0, fmt.Errorf("position %d out of range [0, %d)", i, len(c.filenames))
	}
	return ParseProductID(c.filenames[i])
}

// ParseProductID извлекает числовой ID из базового имени файла без расширения.
// Пути в стиле Windows тоже поддерживаются: каталоги часто собирались там.
func ParseProductID(filename string) (int64, error) {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))

	id, err := strconv.ParseInt(name, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("filename %q: %w", filename, err)
	}

	return id, nil
}
