package rangesearch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

type goldenWindow struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

type goldenData struct {
	Dataset   string       `json:"dataset"`
	Metric    string       `json:"metric"`
	Window    goldenWindow `json:"window"`
	Data      [][]float64  `json:"data"`
	Query     [][]float64  `json:"query"`
	Neighbors [][]int      `json:"neighbors"`
	Distances [][]float64  `json:"distances"`
}

const floatTolerance = 1e-10

func loadGoldenFile(t *testing.T, path string) goldenData {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}
	var gd goldenData
	if err := json.Unmarshal(data, &gd); err != nil {
		t.Fatalf("failed to parse golden file %s: %v", path, err)
	}
	return gd
}

// pointsToMatrix converts row-per-point golden data into the column-per-point
// matrix layout the library takes.
func pointsToMatrix(points [][]float64) *mat.Dense {
	if len(points) == 0 {
		return nil
	}
	dims := len(points[0])
	m := mat.NewDense(dims, len(points), nil)
	for j, p := range points {
		for d, v := range p {
			m.Set(d, j, v)
		}
	}
	return m
}

func goldenMetric(t *testing.T, name string) Metric {
	t.Helper()
	switch name {
	case "euclidean":
		return EuclideanMetric{}
	case "manhattan":
		return ManhattanMetric{}
	case "chebyshev":
		return ChebyshevMetric{}
	default:
		t.Fatalf("unknown golden metric %q", name)
		return nil
	}
}

// TestGoldenResults verifies search output against fixed reference results
// for every tree type and every search strategy. The fixtures are small
// enough to check by hand; every strategy must reproduce them exactly.
func TestGoldenResults(t *testing.T) {
	files, err := filepath.Glob("testdata/*.json")
	if err != nil {
		t.Fatalf("failed to glob testdata: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no golden test files found in testdata/")
	}

	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			gd := loadGoldenFile(t, f)
			ref := pointsToMatrix(gd.Data)
			query := pointsToMatrix(gd.Query)
			metric := goldenMetric(t, gd.Metric)
			window := Range{Lo: gd.Window.Lo, Hi: gd.Window.Hi}

			for _, tt := range TreeTypes() {
				for _, single := range []bool{false, true} {
					cfg := DefaultConfig()
					cfg.TreeType = tt
					cfg.LeafSize = 1
					cfg.SingleMode = single
					cfg.Metric = metric
					m, err := Train(ref, cfg)
					if err != nil {
						t.Fatalf("Train(%s) error: %v", tt, err)
					}
					gotN, gotD, err := m.Search(query, window)
					if err != nil {
						t.Fatalf("Search(%s) error: %v", tt, err)
					}
					label := string(tt) + "/dual"
					if single {
						label = string(tt) + "/single"
					}
					compareGolden(t, label, gotN, gotD, gd)
				}
			}

			cfg := DefaultConfig()
			cfg.Naive = true
			cfg.Metric = metric
			m, err := Train(ref, cfg)
			if err != nil {
				t.Fatalf("Train(naive) error: %v", err)
			}
			gotN, gotD, err := m.Search(query, window)
			if err != nil {
				t.Fatalf("Search(naive) error: %v", err)
			}
			compareGolden(t, "naive", gotN, gotD, gd)
		})
	}
}

// compareGolden checks one search result against a fixture slot by slot,
// logging up to 5 individual mismatches.
func compareGolden(t *testing.T, label string, gotN [][]int, gotD [][]float64, gd goldenData) {
	t.Helper()
	if len(gotN) != len(gd.Neighbors) {
		t.Fatalf("%s: %d result rows, golden has %d", label, len(gotN), len(gd.Neighbors))
	}
	sortByNeighbor(gotN, gotD)
	mismatches := 0
	for i := range gd.Neighbors {
		if len(gotN[i]) != len(gd.Neighbors[i]) {
			mismatches++
			if mismatches <= 5 {
				t.Errorf("%s: slot %d neighbors = %v, golden %v", label, i, gotN[i], gd.Neighbors[i])
			}
			continue
		}
		for k := range gd.Neighbors[i] {
			if gotN[i][k] != gd.Neighbors[i][k] {
				mismatches++
				if mismatches <= 5 {
					t.Errorf("%s: slot %d neighbors = %v, golden %v", label, i, gotN[i], gd.Neighbors[i])
				}
				break
			}
			if !almostEqual(gotD[i][k], gd.Distances[i][k], floatTolerance) {
				mismatches++
				if mismatches <= 5 {
					t.Errorf("%s: slot %d distance[%d] = %g, golden %g",
						label, i, k, gotD[i][k], gd.Distances[i][k])
				}
			}
		}
	}
	if mismatches > 5 {
		t.Errorf("... and %d more %s mismatches", mismatches-5, label)
	}
}
