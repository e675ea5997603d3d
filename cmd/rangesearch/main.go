// Command rangesearch finds, for every query point, all reference points
// whose distance from it falls in a closed interval [min, max].
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/kestrelml/rangesearch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

type options struct {
	referenceFile   string
	queryFile       string
	inputModelFile  string
	outputModelFile string
	neighborsFile   string
	distancesFile   string
	treeType        string
	leafSize        int
	min             float64
	max             float64
	naive           bool
	singleMode      bool
	randomBasis     bool
	seed            int64
	verbose         bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "rangesearch",
		Short: "Find all reference points within a distance range of each query point",
		Long: `rangesearch builds a spatial index over a reference dataset and reports,
for each query point, every reference point whose distance from it lies in
the closed interval [--min, --max]. A --max of 0 means unbounded. Without
--query_file the reference set is searched against itself, and points are
not reported as their own neighbors.

Datasets are CSV files with one point per row. Results are written as
ragged CSVs with one row per query: --neighbors_file holds reference row
indices and --distances_file the matching distances, both in the same
order.

The index can be built once and reused: --output_model_file saves the
trained model and --input_model_file loads one instead of reading
--reference_file. For example, to find every pair of points in ref.csv
within distance 2 of each other:

  rangesearch --reference_file ref.csv --max 2 \
      --neighbors_file neighbors.csv --distances_file distances.csv`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&opts.referenceFile, "reference_file", "r", "", "CSV file containing the reference dataset, one point per row")
	fl.StringVarP(&opts.queryFile, "query_file", "q", "", "CSV file containing the query dataset; omit to search the reference set against itself")
	fl.StringVarP(&opts.inputModelFile, "input_model_file", "m", "", "file to load a previously saved model from, instead of --reference_file")
	fl.StringVarP(&opts.outputModelFile, "output_model_file", "M", "", "file to save the trained model to")
	fl.StringVarP(&opts.neighborsFile, "neighbors_file", "n", "", "file to write the in-range reference indices to, one CSV row per query")
	fl.StringVarP(&opts.distancesFile, "distances_file", "d", "", "file to write the matching distances to, one CSV row per query")
	fl.StringVarP(&opts.treeType, "tree_type", "t", "kd", "tree type to build: "+treeTypeList())
	fl.IntVarP(&opts.leafSize, "leaf_size", "l", 20, "maximum number of points per tree leaf")
	fl.Float64VarP(&opts.min, "min", "L", 0, "lower bound of the search range")
	fl.Float64VarP(&opts.max, "max", "U", 0, "upper bound of the search range; 0 means unbounded")
	fl.BoolVarP(&opts.naive, "naive", "N", false, "search by brute-force scan instead of a tree")
	fl.BoolVarP(&opts.singleMode, "single_mode", "S", false, "traverse the tree once per query instead of dual-tree search")
	fl.BoolVarP(&opts.randomBasis, "random_basis", "R", false, "rotate the data through a random orthogonal basis before indexing")
	fl.Int64VarP(&opts.seed, "seed", "s", 0, "random seed; 0 uses the current time")
	fl.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to standard error")
	return cmd
}

func treeTypeList() string {
	s := ""
	for i, tt := range rangesearch.TreeTypes() {
		if i > 0 {
			s += ", "
		}
		s += string(tt)
	}
	return s
}

func run(cmd *cobra.Command, opts *options) error {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if (opts.referenceFile == "") == (opts.inputModelFile == "") {
		return errors.New("exactly one of --reference_file and --input_model_file must be given")
	}

	window := rangesearch.Range{Lo: opts.min, Hi: opts.max}
	if opts.max == 0 {
		window.Hi = math.Inf(1)
	}
	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	doSearch := opts.queryFile != "" || cmd.Flags().Changed("min") || cmd.Flags().Changed("max")

	var reference, query *mat.Dense
	g := new(errgroup.Group)
	if opts.referenceFile != "" {
		g.Go(func() error {
			var err error
			reference, err = loadMatrixCSV(opts.referenceFile)
			return err
		})
	}
	if opts.queryFile != "" {
		g.Go(func() error {
			var err error
			query, err = loadMatrixCSV(opts.queryFile)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var model *rangesearch.Model
	if opts.inputModelFile != "" {
		start := time.Now()
		m, err := rangesearch.LoadModel(opts.inputModelFile)
		if err != nil {
			return err
		}
		logger.Info("loaded model",
			"file", opts.inputModelFile,
			"tree_type", m.TreeType(),
			"points", m.NumPoints(),
			"dims", m.Dims(),
			"duration", time.Since(start))
		for _, name := range []string{"tree_type", "leaf_size", "random_basis", "seed"} {
			if cmd.Flags().Changed(name) {
				logger.Warn("flag is ignored when loading a model", "flag", "--"+name)
			}
		}
		// Search mode always follows the flags, not the saved model.
		m.SetNaive(opts.naive)
		m.SetSingleMode(opts.singleMode)
		model = m
	} else {
		cfg := rangesearch.DefaultConfig()
		cfg.TreeType = rangesearch.TreeType(opts.treeType)
		cfg.LeafSize = opts.leafSize
		cfg.Naive = opts.naive
		cfg.SingleMode = opts.singleMode
		cfg.RandomBasis = opts.randomBasis
		cfg.Seed = seed

		dims, n := reference.Dims()
		start := time.Now()
		m, err := rangesearch.Train(reference, cfg)
		if err != nil {
			return err
		}
		logger.Info("built model",
			"tree_type", cfg.TreeType,
			"points", n,
			"dims", dims,
			"duration", time.Since(start))
		model = m
	}

	if doSearch {
		if opts.neighborsFile == "" && opts.distancesFile == "" {
			logger.Warn("neither --neighbors_file nor --distances_file given; search results will not be saved")
		}
		start := time.Now()
		neighbors, distances, err := model.Search(query, window)
		if err != nil {
			return err
		}
		logger.Info("search complete",
			"queries", len(neighbors),
			"min", window.Lo,
			"max", window.Hi,
			"duration", time.Since(start))
		if opts.neighborsFile != "" {
			if err := writeNeighborsCSV(opts.neighborsFile, neighbors); err != nil {
				return err
			}
		}
		if opts.distancesFile != "" {
			if err := writeDistancesCSV(opts.distancesFile, distances); err != nil {
				return err
			}
		}
	} else if opts.neighborsFile != "" || opts.distancesFile != "" {
		logger.Warn("output files given but no search requested; pass --min, --max, or --query_file")
	}

	if opts.outputModelFile != "" {
		if err := model.SaveToAtomic(opts.outputModelFile); err != nil {
			return err
		}
		logger.Info("saved model", "file", opts.outputModelFile)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
