// Command solar-datagen writes the synthetic daily training dataset used
// to fit the yield model.
package main

import (
	"flag"
	"fmt"
	"os"

	"solarcast/internal/dataset"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		out       string
		startYear int
		endYear   int
		seed      uint64
		force     bool
	)
	flag.StringVar(&out, "out", "solar_data.csv", "output CSV path")
	flag.IntVar(&startYear, "start-year", 2019, "first year of daily observations")
	flag.IntVar(&endYear, "end-year", 2023, "last year of daily observations")
	flag.Uint64Var(&seed, "seed", 42, "random seed")
	flag.BoolVar(&force, "force", false, "overwrite an existing output file")
	flag.Parse()

	if endYear < startYear {
		return fmt.Errorf("end-year %d precedes start-year %d", endYear, startYear)
	}

	if !force {
		if _, err := os.Stat(out); err == nil {
			return fmt.Errorf("%s already exists, pass -force to overwrite", out)
		}
	}

	rows := dataset.GenerateSynthetic(dataset.SynthConfig{
		StartYear: startYear,
		EndYear:   endYear,
		Seed:      seed,
	})

	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}

	if err := dataset.WriteCSV(file, rows); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", out, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", out, err)
	}

	fmt.Printf("wrote %d rows to %s\n", len(rows), out)
	return nil
}
