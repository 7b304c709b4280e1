package catalog

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DRSN-tech/visual-recommender/internal/cfg"
	"github.com/DRSN-tech/visual-recommender/pkg/e"
	"github.com/DRSN-tech/visual-recommender/pkg/logger"
	"github.com/stretchr/testify/require"
)

// writeNpy собирает .npy версии 1.0 с заданным dtype ('<f4' или '<f8').
func writeNpy(t *testing.T, dtype string, fortran bool, rows, cols int, values []float64) []byte {
	t.Helper()

	order := "False"
	if fortran {
		order = "True"
	}
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': %s, 'shape': (%d, %d), }", dtype, order, rows, cols)
	pad := 64 - (10+len(header)+1)%64
	header += strings.Repeat(" ", pad%64) + "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{1, 0})
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(len(header))))
	buf.WriteString(header)

	for _, v := range values {
		if dtype == "<f4" {
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, math.Float32bits(float32(v))))
		} else {
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, math.Float64bits(v)))
		}
	}
	return buf.Bytes()
}

func TestReadFeatures_Float32(t *testing.T) {
	m, err := readFeatures(bytes.NewReader(writeNpy(t, "<f4", false, 2, 3, []float64{1, 2, 3, 4, 5, 6})))
	require.NoError(t, err)

	r, c := m.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 3, c)
	require.Equal(t, []float64{4, 5, 6}, m.RawRowView(1))
}

func TestReadFeatures_Float64(t *testing.T) {
	m, err := readFeatures(bytes.NewReader(writeNpy(t, "<f8", false, 2, 3, []float64{1, 2, 3, 4, 5, 6})))
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3}, m.RawRowView(0))
	require.Equal(t, []float64{4, 5, 6}, m.RawRowView(1))
}

func TestReadFeatures_BadShape(t *testing.T) {
	_, err := readFeatures(bytes.NewReader(writeNpy(t, "<f4", false, 0, 3, nil)))
	require.Error(t, err)
}

func TestReadFilenames(t *testing.T) {
	names, err := readFilenames(strings.NewReader(`["images/1.jpg","images/2.jpg"]`), "filenames.json")
	require.NoError(t, err)
	require.Equal(t, []string{"images/1.jpg", "images/2.jpg"}, names)

	names, err = readFilenames(strings.NewReader("a/1.jpg\n\n  a/2.jpg  \n"), "filenames.txt")
	require.NoError(t, err)
	require.Equal(t, []string{"a/1.jpg", "a/2.jpg"}, names)

	_, err = readFilenames(strings.NewReader(`{"not":"a list"}`), "filenames.json")
	require.Error(t, err)
}

func writeCatalog(t *testing.T, dir string, rows int, names string) *cfg.CatalogCfg {
	t.Helper()
	values := make([]float64, rows*2)
	for i := range values {
		values[i] = float64(i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "images_features.npy"), writeNpy(t, "<f4", false, rows, 2, values), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "filenames.json"), []byte(names), 0o644))

	return &cfg.CatalogCfg{Source: cfg.CatalogSourceFS, Dir: dir, FeaturesFile: "images_features.npy", FilenamesFile: "filenames.json"}
}

func TestFSLoader(t *testing.T) {
	c := writeCatalog(t, t.TempDir(), 3, `["10.jpg","11.jpg","12.jpg"]`)

	catalog, err := NewFSLoader(c, logger.Nop()).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, catalog.Len())
	require.Equal(t, 2, catalog.Dim())

	id, err := catalog.ProductID(2)
	require.NoError(t, err)
	require.Equal(t, int64(12), id)
}

func TestFSLoader_Missing(t *testing.T) {
	c := &cfg.CatalogCfg{Dir: t.TempDir(), FeaturesFile: "images_features.npy", FilenamesFile: "filenames.json"}

	_, err := NewFSLoader(c, logger.Nop()).Load(context.Background())
	require.ErrorIs(t, err, e.ErrCatalogNotFound)
}

func TestFSLoader_LengthMismatch(t *testing.T) {
	c := writeCatalog(t, t.TempDir(), 3, `["10.jpg","11.jpg"]`)

	_, err := NewFSLoader(c, logger.Nop()).Load(context.Background())
	require.ErrorIs(t, err, e.ErrCatalogMismatch)
}

type dirObjects struct {
	dir string
}

func (d dirObjects) Upload(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", nil
}

func (d dirObjects) Download(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(d.dir, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil, e.ErrCatalogNotFound
	}
	return f, err
}

func (d dirObjects) Delete(context.Context, string) error { return nil }

func TestMinioLoader(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ML"), 0o755))
	c := writeCatalog(t, filepath.Join(root, "ML"), 2, `["1.jpg","2.jpg"]`)
	c.Source = cfg.CatalogSourceMinio
	c.Dir = "ML"

	catalog, err := NewMinioLoader(dirObjects{dir: root}, c, logger.Nop()).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, catalog.Len())

	c.Dir = "absent"
	_, err = NewMinioLoader(dirObjects{dir: root}, c, logger.Nop()).Load(context.Background())
	require.ErrorIs(t, err, e.ErrCatalogNotFound)
}

func TestFSLoader_NonFiniteFeatures(t *testing.T) {
	dir := t.TempDir()
	c := writeCatalog(t, dir, 3, `["10.jpg","11.jpg","12.jpg"]`)
	features := writeNpy(t, "<f4", false, 3, 1, []float64{5, math.NaN(), 0})
	require.NoError(t, os.WriteFile(filepath.Join(dir, c.FeaturesFile), features, 0o644))

	_, err := NewFSLoader(c, logger.Nop()).Load(context.Background())
	require.ErrorIs(t, err, e.ErrCatalogNonFinite)
}
