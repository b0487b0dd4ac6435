package vectorindex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeNpy writes a version 1.0 npy file holding rows as little-endian float32 or float64.
func writeNpy(t *testing.T, path string, rows [][]float32, wide bool) {
	t.Helper()

	descr := "<f4"
	if wide {
		descr = "<f8"
	}
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%d, %d), }", descr, len(rows), len(rows[0]))
	// magic(6) + version(2) + len(2) + header + '\n' must be a multiple of 64.
	total := 10 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += string(bytes.Repeat([]byte(" "), 64-pad))
	}
	header += "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{1, 0})
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(len(header))))
	buf.WriteString(header)
	for _, row := range rows {
		for _, v := range row {
			if wide {
				require.NoError(t, binary.Write(&buf, binary.LittleEndian, float64(v)))
			} else {
				require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
			}
		}
	}

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestDiscoverShardsOrdersNumerically(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"emb_10-11.npy", "emb_2-3.npy", "emb_0-1.npy", "notes.txt", "emb_x-y.npy"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	shards, err := DiscoverShards(dir)
	require.NoError(t, err)
	require.Len(t, shards, 3)
	require.Equal(t, []int{0, 2, 10}, []int{shards[0].Start, shards[1].Start, shards[2].Start})
	require.Equal(t, 11, shards[2].End)
}

func TestLoadAssignsIdsFromShardStart(t *testing.T) {
	dir := t.TempDir()
	writeNpy(t, filepath.Join(dir, "emb_0-1.npy"), [][]float32{{1, 0, 0}, {0, 1, 0}}, false)
	writeNpy(t, filepath.Join(dir, "emb_2-3.npy"), [][]float32{{0, 0, 1}, {1, 1, 0}}, true)

	idx, err := Load("vacancies", dir)
	require.NoError(t, err)
	require.True(t, idx.Available())
	require.Equal(t, 4, idx.Len())
	require.Equal(t, 3, idx.Dim())

	ids, err := idx.Search([]float32{0, 0, 5}, 1)
	require.NoError(t, err)
	require.Equal(t, []int{2}, ids)

	ids, err = idx.Search([]float32{3, 3, 0}, 1)
	require.NoError(t, err)
	require.Equal(t, []int{3}, ids)
}

func TestSearchOrdersBySimilarity(t *testing.T) {
	var (
		ids     []int
		vectors [][]float32
	)
	for i := 0; i < 60; i++ {
		angle := float64(i) * math.Pi / 120
		ids = append(ids, 100+i)
		vectors = append(vectors, []float32{float32(math.Cos(angle)), float32(math.Sin(angle)), 0.1})
	}

	idx, err := New("courses", ids, vectors)
	require.NoError(t, err)

	for _, k := range []int{1, 5, 20, 60, 500} {
		hits, err := idx.SearchHits([]float32{1, 0, 0.1}, k)
		require.NoError(t, err)
		require.LessOrEqual(t, len(hits), k)
		require.NotEmpty(t, hits)

		for n, hit := range hits {
			require.GreaterOrEqual(t, hit.ID, 100)
			require.Less(t, hit.ID, 160)
			if n > 0 {
				require.LessOrEqual(t, hit.Score, hits[n-1].Score)
			}
		}
	}

	ids0, err := idx.Search([]float32{1, 0, 0.1}, 0)
	require.NoError(t, err)
	require.Empty(t, ids0)
}

func TestOpenMarksUnavailable(t *testing.T) {
	idx := Open("vacancies", t.TempDir(), nil)
	require.False(t, idx.Available())
	require.Error(t, idx.Cause())

	_, err := idx.Search([]float32{1}, 3)
	require.True(t, errors.Is(err, ErrUnavailable))

	missing := Open("courses", filepath.Join(t.TempDir(), "missing"), nil)
	require.False(t, missing.Available())
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("x", []int{1}, [][]float32{{1, 2}, {3, 4}})
	require.Error(t, err)

	_, err = New("x", []int{1, 2}, [][]float32{{1, 2}, {3}})
	require.Error(t, err)

	_, err = New("x", []int{1, 1}, [][]float32{{1, 2}, {3, 4}})
	require.Error(t, err)

	idx, err := New("x", []int{1}, [][]float32{{1, 2}})
	require.NoError(t, err)
	_, err = idx.Search([]float32{1, 2, 3}, 1)
	require.Error(t, err)
}

func TestNormalize(t *testing.T) {
	out := Normalize([]float32{3, 4})
	require.InDelta(t, 0.6, out[0], 1e-6)
	require.InDelta(t, 0.8, out[1], 1e-6)

	zero := Normalize([]float32{0, 0})
	require.Equal(t, []float32{0, 0}, zero)
}
