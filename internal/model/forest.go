package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"solarcast/internal/types"
)

// artifactFormatVersion is bumped whenever the serialized layout changes.
const artifactFormatVersion = 1

// Tree is a single regression tree stored as flattened parallel node
// arrays. Node 0 is the root. Internal nodes carry a feature index and a
// threshold; traversal goes left when x[feature] <= threshold. Leaf nodes
// have Feature == -1 and carry the prediction in Value.
type Tree struct {
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Value     []float64 `json:"value"`
}

// predict walks the tree for one feature vector.
func (t *Tree) predict(x []float64) float64 {
	i := 0
	for t.Feature[i] >= 0 {
		if x[t.Feature[i]] <= t.Threshold[i] {
			i = t.Left[i]
		} else {
			i = t.Right[i]
		}
	}
	return t.Value[i]
}

// validate checks that the node arrays are parallel and child indices are
// in range, so a corrupt artifact fails at load time instead of panicking
// during a request.
func (t *Tree) validate() error {
	n := len(t.Feature)
	if n == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	if len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n || len(t.Value) != n {
		return fmt.Errorf("tree node arrays are not parallel")
	}
	for i := 0; i < n; i++ {
		if t.Feature[i] < 0 {
			continue
		}
		if t.Feature[i] >= len(types.FeatureNames) {
			return fmt.Errorf("node %d references feature %d out of range", i, t.Feature[i])
		}
		if t.Left[i] <= i || t.Left[i] >= n || t.Right[i] <= i || t.Right[i] >= n {
			return fmt.Errorf("node %d has child index out of range", i)
		}
	}
	return nil
}

// RandomForest is an ensemble regressor satisfying the Predictor contract.
// It is immutable after load and safe for concurrent use.
type RandomForest struct {
	FormatVersion int       `json:"format_version"`
	TrainedAt     time.Time `json:"trained_at"`

	// Features records the feature-name order the forest was fitted on.
	// The loader rejects any artifact whose order differs from
	// types.FeatureNames; a silent mismatch would produce plausible but
	// wrong predictions.
	Features []string `json:"features"`

	// ReferenceLat/ReferenceLon are the coordinates of the training site.
	// The feature builder stamps these, not the request coordinates: the
	// model was trained on a single site and does not generalize
	// geographically, only the weather inputs vary per request.
	ReferenceLat float64 `json:"reference_lat"`
	ReferenceLon float64 `json:"reference_lon"`

	Trees []Tree `json:"trees"`
}

// Predict returns the mean of the per-tree predictions for one feature
// vector ordered per Features.
func (f *RandomForest) Predict(features []float64) (float64, error) {
	if len(features) != len(f.Features) {
		return 0, fmt.Errorf("expected %d features, got %d", len(f.Features), len(features))
	}

	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].predict(features)
	}
	return sum / float64(len(f.Trees)), nil
}

// validate checks artifact integrity after decode.
func (f *RandomForest) validate() error {
	if f.FormatVersion != artifactFormatVersion {
		return fmt.Errorf("unsupported artifact format version %d", f.FormatVersion)
	}
	if len(f.Features) != len(types.FeatureNames) {
		return fmt.Errorf("artifact has %d features, expected %d", len(f.Features), len(types.FeatureNames))
	}
	for i, name := range types.FeatureNames {
		if f.Features[i] != name {
			return fmt.Errorf("feature order mismatch at index %d: artifact has %q, expected %q", i, f.Features[i], name)
		}
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("artifact contains no trees")
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	if math.IsNaN(f.ReferenceLat) || math.IsNaN(f.ReferenceLon) {
		return fmt.Errorf("artifact reference coordinates are NaN")
	}
	return nil
}

// Load reads a zstd-compressed JSON forest artifact from path and validates
// it. Absence or corruption of the artifact is an error the caller handles
// by running with prediction disabled rather than crashing.
func Load(path string) (*RandomForest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model artifact: %w", err)
	}
	defer file.Close()

	dec, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer dec.Close()

	var forest RandomForest
	if err := json.NewDecoder(dec.IOReadCloser()).Decode(&forest); err != nil {
		return nil, fmt.Errorf("decoding model artifact: %w", err)
	}

	if err := forest.validate(); err != nil {
		return nil, fmt.Errorf("validating model artifact: %w", err)
	}

	return &forest, nil
}

// Save writes the forest as a zstd-compressed JSON artifact at path.
func Save(forest *RandomForest, path string) error {
	if err := forest.validate(); err != nil {
		return fmt.Errorf("refusing to save invalid artifact: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating artifact file: %w", err)
	}

	enc, err := zstd.NewWriter(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("creating zstd writer: %w", err)
	}

	if err := json.NewEncoder(enc).Encode(forest); err != nil {
		enc.Close()
		file.Close()
		return fmt.Errorf("encoding model artifact: %w", err)
	}

	if err := enc.Close(); err != nil {
		file.Close()
		return fmt.Errorf("flushing zstd writer: %w", err)
	}
	return file.Close()
}
