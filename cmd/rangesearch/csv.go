package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// loadMatrixCSV reads a dataset stored one point per row and returns it in
// the column-per-point orientation the library expects.
func loadMatrixCSV(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("reading %s: no data", path)
	}

	dims, n := len(rows[0]), len(rows)
	out := mat.NewDense(dims, n, nil)
	for p, row := range rows {
		for d, cell := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("reading %s row %d: %w", path, p+1, err)
			}
			out.Set(d, p, v)
		}
	}
	return out, nil
}

// writeNeighborsCSV writes one row of reference indices per query. Queries
// with no in-range neighbors produce an empty line.
func writeNeighborsCSV(path string, neighbors [][]int) error {
	records := make([][]string, len(neighbors))
	for i, row := range neighbors {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = strconv.Itoa(v)
		}
		records[i] = rec
	}
	return writeCSV(path, records)
}

// writeDistancesCSV writes one row of distances per query, aligned with the
// neighbors output.
func writeDistancesCSV(path string, distances [][]float64) error {
	records := make([][]string, len(distances))
	for i, row := range distances {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		records[i] = rec
	}
	return writeCSV(path, records)
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
