// Command solar-train fits the random forest yield model on a daily
// training dataset and writes the serving artifact.
package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"

	"solarcast/internal/dataset"
	"solarcast/internal/model"
)

const holdoutFraction = 0.2

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		in    string
		out   string
		trees int
		depth int
		seed  uint64
	)
	flag.StringVar(&in, "in", "solar_data.csv", "training dataset CSV path")
	flag.StringVar(&out, "out", "solar_model.json.zst", "output model artifact path")
	flag.IntVar(&trees, "trees", 150, "number of trees in the forest")
	flag.IntVar(&depth, "max-depth", 15, "maximum tree depth")
	flag.Uint64Var(&seed, "seed", 42, "random seed")
	flag.Parse()

	file, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("opening %s: %w", in, err)
	}
	rows, err := dataset.ReadCSV(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("reading %s: %w", in, err)
	}

	// Rows with missing values cannot contribute to the fit.
	clean := rows[:0]
	dropped := 0
	for _, r := range rows {
		if r.HasNaN() {
			dropped++
			continue
		}
		clean = append(clean, r)
	}
	if len(clean) == 0 {
		return fmt.Errorf("%s contains no usable rows", in)
	}
	if dropped > 0 {
		fmt.Printf("dropped %d rows with missing values\n", dropped)
	}

	trainRows, testRows := split(clean, seed)

	samples := make([][]float64, len(trainRows))
	targets := make([]float64, len(trainRows))
	for i, r := range trainRows {
		samples[i] = r.Features()
		targets[i] = r.YieldKWhPerAcre
	}

	cfg := model.DefaultTrainConfig()
	cfg.NumTrees = trees
	cfg.MaxDepth = depth
	cfg.Seed = seed
	cfg.ReferenceLat = dataset.PuneLat
	cfg.ReferenceLon = dataset.PuneLon

	fmt.Printf("fitting %d trees on %d rows\n", cfg.NumTrees, len(trainRows))
	forest, err := model.Fit(samples, targets, cfg)
	if err != nil {
		return fmt.Errorf("fitting model: %w", err)
	}

	if len(testRows) > 0 {
		predicted := make([]float64, len(testRows))
		actual := make([]float64, len(testRows))
		for i, r := range testRows {
			p, err := forest.Predict(r.Features())
			if err != nil {
				return fmt.Errorf("evaluating holdout row %d: %w", i, err)
			}
			predicted[i] = p
			actual[i] = r.YieldKWhPerAcre
		}
		fmt.Printf("holdout MAE: %.2f kWh/acre/day\n", model.MAE(predicted, actual))
		fmt.Printf("holdout R2:  %.4f\n", model.R2(predicted, actual))
	}

	if err := model.Save(forest, out); err != nil {
		return fmt.Errorf("saving artifact: %w", err)
	}
	fmt.Printf("wrote model artifact to %s\n", out)
	return nil
}

// split shuffles the rows deterministically and holds out a fraction for
// evaluation.
func split(rows []dataset.Row, seed uint64) (train, test []dataset.Row) {
	shuffled := append([]dataset.Row(nil), rows...)
	rng := rand.New(rand.NewPCG(seed, 1))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	holdout := int(float64(len(shuffled)) * holdoutFraction)
	if holdout == 0 && len(shuffled) > 1 {
		holdout = 1
	}
	return shuffled[holdout:], shuffled[:holdout]
}
