package vectorindex

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/sbinet/npyio"
)

var shardName = regexp.MustCompile(`^emb_(\d+)-(\d+)\.npy$`)

// Shard is one embedding file. Row r of the file belongs to catalog id Start+r.
type Shard struct {
	Path  string
	Start int
	End   int
}

// DiscoverShards lists emb_<start>-<end>.npy files in dir ordered by start.
func DiscoverShards(dir string) ([]Shard, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read shard dir %q: %w", dir, err)
	}

	shards := make([]Shard, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := shardName.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		start, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("parse shard start %q: %w", entry.Name(), err)
		}
		end, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("parse shard end %q: %w", entry.Name(), err)
		}
		shards = append(shards, Shard{Path: filepath.Join(dir, entry.Name()), Start: start, End: end})
	}

	sort.SliceStable(shards, func(i, j int) bool { return shards[i].Start < shards[j].Start })
	return shards, nil
}

// readShard returns the rows of a 2-D float32 or float64 npy file.
func readShard(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read npy header: %w", err)
	}

	shape := r.Header.Descr.Shape
	if len(shape) != 2 {
		return nil, fmt.Errorf("expected 2-D array, got shape %v", shape)
	}
	if r.Header.Descr.Fortran {
		return nil, fmt.Errorf("fortran ordered arrays are not supported")
	}
	rows, cols := shape[0], shape[1]

	flat := make([]float32, 0, rows*cols)
	switch r.Header.Descr.Type {
	case "<f4", "f4", "float32":
		if err := r.Read(&flat); err != nil {
			return nil, fmt.Errorf("read float32 rows: %w", err)
		}
	case "<f8", "f8", "float64":
		var wide []float64
		if err := r.Read(&wide); err != nil {
			return nil, fmt.Errorf("read float64 rows: %w", err)
		}
		for _, v := range wide {
			flat = append(flat, float32(v))
		}
	default:
		return nil, fmt.Errorf("unsupported dtype %q", r.Header.Descr.Type)
	}

	if len(flat) != rows*cols {
		return nil, fmt.Errorf("expected %d values, got %d", rows*cols, len(flat))
	}

	out := make([][]float32, rows)
	for i := range out {
		out[i] = flat[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return out, nil
}
