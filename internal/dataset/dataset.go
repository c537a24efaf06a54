// Package dataset defines the training dataset schema shared by the
// synthetic data generator and the model trainer.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"solarcast/internal/types"
)

// TargetName is the CSV column holding the regression target.
const TargetName = "Solar_kWh_per_Acre"

// Row is one daily training observation.
type Row struct {
	Lat             float64
	Lon             float64
	Acres           float64
	Month           int
	DayOfYear       int
	IrradianceKWhM2 float64
	MeanTempC       float64
	YieldKWhPerAcre float64
}

// Features returns the row's feature values ordered per types.FeatureNames.
func (r Row) Features() []float64 {
	return []float64{
		r.Lat,
		r.Lon,
		r.Acres,
		float64(r.Month),
		float64(r.DayOfYear),
		r.IrradianceKWhM2,
		r.MeanTempC,
	}
}

// HasNaN reports whether any feature or the target is NaN. Such rows are
// dropped before training.
func (r Row) HasNaN() bool {
	if math.IsNaN(r.YieldKWhPerAcre) {
		return true
	}
	for _, f := range r.Features() {
		if math.IsNaN(f) {
			return true
		}
	}
	return false
}

// header is the CSV column order: the canonical feature names followed by
// the target.
func header() []string {
	return append(append([]string(nil), types.FeatureNames...), TargetName)
}

// WriteCSV writes rows with the canonical header. Values are rounded to
// four decimal places, matching the dataset the original model was fitted
// on.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	record := make([]string, len(types.FeatureNames)+1)
	for _, r := range rows {
		values := append(r.Features(), r.YieldKWhPerAcre)
		for i, v := range values {
			record[i] = strconv.FormatFloat(round4(v), 'f', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a dataset file, validating the header against the
// canonical column order.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	want := header()
	if len(head) != len(want) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(want), len(head))
	}
	for i := range want {
		if head[i] != want[i] {
			return nil, fmt.Errorf("column %d is %q, expected %q", i, head[i], want[i])
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		values := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, want[i], err)
			}
			values[i] = v
		}

		rows = append(rows, Row{
			Lat:             values[0],
			Lon:             values[1],
			Acres:           values[2],
			Month:           int(values[3]),
			DayOfYear:       int(values[4]),
			IrradianceKWhM2: values[5],
			MeanTempC:       values[6],
			YieldKWhPerAcre: values[7],
		})
	}

	return rows, nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
