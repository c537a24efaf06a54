package model

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"solarcast/internal/types"
)

// TrainConfig holds the forest hyperparameters. Defaults mirror the
// parameters the production artifact was originally fitted with.
type TrainConfig struct {
	NumTrees        int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            uint64

	// ReferenceLat/ReferenceLon are stamped into the artifact so the
	// serving-side feature builder cannot drift from the training site.
	ReferenceLat float64
	ReferenceLon float64
}

// DefaultTrainConfig returns the standard hyperparameters.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		NumTrees:        150,
		MaxDepth:        15,
		MinSamplesSplit: 10,
		MinSamplesLeaf:  5,
		Seed:            42,
	}
}

// Fit trains a random forest regressor on the given samples. Each sample is
// a feature vector ordered per types.FeatureNames; targets holds the
// corresponding per-acre daily yields. Trees are fitted concurrently, one
// bootstrap resample per tree; results are deterministic for a fixed Seed
// regardless of scheduling because each tree derives its own generator.
func Fit(samples [][]float64, targets []float64, cfg TrainConfig) (*RandomForest, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no training samples")
	}
	if len(samples) != len(targets) {
		return nil, fmt.Errorf("samples (%d) and targets (%d) differ in length", len(samples), len(targets))
	}
	for i, s := range samples {
		if len(s) != len(types.FeatureNames) {
			return nil, fmt.Errorf("sample %d has %d features, expected %d", i, len(s), len(types.FeatureNames))
		}
	}
	if cfg.NumTrees <= 0 {
		return nil, fmt.Errorf("NumTrees must be positive")
	}

	forest := &RandomForest{
		FormatVersion: artifactFormatVersion,
		TrainedAt:     time.Now().UTC(),
		Features:      append([]string(nil), types.FeatureNames...),
		ReferenceLat:  cfg.ReferenceLat,
		ReferenceLon:  cfg.ReferenceLon,
		Trees:         make([]Tree, cfg.NumTrees),
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for t := 0; t < cfg.NumTrees; t++ {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(t)))

			// Bootstrap resample with replacement.
			idx := make([]int, len(samples))
			for i := range idx {
				idx[i] = rng.IntN(len(samples))
			}

			forest.Trees[t] = growTree(samples, targets, idx, cfg)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return forest, nil
}

// treeBuilder accumulates flattened nodes while a tree is grown.
type treeBuilder struct {
	tree Tree
}

// addLeaf appends a leaf node and returns its index.
func (b *treeBuilder) addLeaf(value float64) int {
	i := len(b.tree.Feature)
	b.tree.Feature = append(b.tree.Feature, -1)
	b.tree.Threshold = append(b.tree.Threshold, 0)
	b.tree.Left = append(b.tree.Left, -1)
	b.tree.Right = append(b.tree.Right, -1)
	b.tree.Value = append(b.tree.Value, value)
	return i
}

// addSplit appends an internal node with placeholder children and returns
// its index. Children are patched once the subtrees exist.
func (b *treeBuilder) addSplit(feature int, threshold float64) int {
	i := len(b.tree.Feature)
	b.tree.Feature = append(b.tree.Feature, feature)
	b.tree.Threshold = append(b.tree.Threshold, threshold)
	b.tree.Left = append(b.tree.Left, -1)
	b.tree.Right = append(b.tree.Right, -1)
	b.tree.Value = append(b.tree.Value, 0)
	return i
}

// growTree fits one CART regression tree on the rows named by idx.
func growTree(samples [][]float64, targets []float64, idx []int, cfg TrainConfig) Tree {
	b := &treeBuilder{}
	growNode(b, samples, targets, idx, cfg, 0)
	return b.tree
}

func growNode(b *treeBuilder, samples [][]float64, targets []float64, idx []int, cfg TrainConfig, depth int) int {
	if depth >= cfg.MaxDepth || len(idx) < cfg.MinSamplesSplit {
		return b.addLeaf(meanTarget(targets, idx))
	}

	feature, threshold, ok := bestSplit(samples, targets, idx, cfg.MinSamplesLeaf)
	if !ok {
		return b.addLeaf(meanTarget(targets, idx))
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if samples[i][feature] <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}

	node := b.addSplit(feature, threshold)
	b.tree.Left[node] = growNode(b, samples, targets, leftIdx, cfg, depth+1)
	b.tree.Right[node] = growNode(b, samples, targets, rightIdx, cfg, depth+1)
	return node
}

// bestSplit scans every feature for the threshold that minimizes the
// weighted sum of squared errors of the two children. Candidate thresholds
// are midpoints between consecutive distinct values. Returns ok=false when
// no split satisfies the minimum leaf size or reduces the error.
func bestSplit(samples [][]float64, targets []float64, idx []int, minLeaf int) (int, float64, bool) {
	n := len(idx)
	parentSSE := sseTarget(targets, idx)

	bestFeature := -1
	var bestThreshold float64
	bestSSE := parentSSE

	order := make([]int, n)

	for f := 0; f < len(types.FeatureNames); f++ {
		copy(order, idx)
		sort.Slice(order, func(a, c int) bool {
			return samples[order[a]][f] < samples[order[c]][f]
		})

		// Running sums from the left enable O(1) SSE evaluation per
		// candidate: SSE = sumSq - sum^2/n on each side.
		var leftSum, leftSumSq float64
		totalSum, totalSumSq := sums(targets, idx)

		for k := 0; k < n-1; k++ {
			y := targets[order[k]]
			leftSum += y
			leftSumSq += y * y

			cur, next := samples[order[k]][f], samples[order[k+1]][f]
			if cur == next {
				continue
			}

			nl, nr := k+1, n-k-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}

			leftSSE := leftSumSq - leftSum*leftSum/float64(nl)
			rightSum := totalSum - leftSum
			rightSSE := (totalSumSq - leftSumSq) - rightSum*rightSum/float64(nr)

			if total := leftSSE + rightSSE; total < bestSSE {
				bestSSE = total
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

func sums(targets []float64, idx []int) (sum, sumSq float64) {
	for _, i := range idx {
		sum += targets[i]
		sumSq += targets[i] * targets[i]
	}
	return sum, sumSq
}

func meanTarget(targets []float64, idx []int) float64 {
	sum, _ := sums(targets, idx)
	return sum / float64(len(idx))
}

func sseTarget(targets []float64, idx []int) float64 {
	sum, sumSq := sums(targets, idx)
	return sumSq - sum*sum/float64(len(idx))
}

// MAE returns the mean absolute error of predictions against actuals.
func MAE(predicted, actual []float64) float64 {
	var sum float64
	for i := range predicted {
		sum += math.Abs(predicted[i] - actual[i])
	}
	return sum / float64(len(predicted))
}

// R2 returns the coefficient of determination of predictions against
// actuals.
func R2(predicted, actual []float64) float64 {
	var mean float64
	for _, a := range actual {
		mean += a
	}
	mean /= float64(len(actual))

	var ssRes, ssTot float64
	for i := range actual {
		ssRes += (actual[i] - predicted[i]) * (actual[i] - predicted[i])
		ssTot += (actual[i] - mean) * (actual[i] - mean)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}
