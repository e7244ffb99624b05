package service

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// PredictSingle runs a single-label head: softmax over the logits, then the
// most probable label. Ties go to the lowest label index.
func PredictSingle(ctx context.Context, enc *Encoding, block *ModelBlock) (LabelScore, error) {
	logits, err := runBlock(ctx, enc, block)
	if err != nil {
		return LabelScore{}, err
	}
	return SelectSingle(Softmax(logits), block.Labels), nil
}

// PredictMulti runs the multi-label head: an independent sigmoid per label,
// keeping every label whose probability reaches threshold. The returned
// slices are ordered by descending confidence and are empty, not nil, when
// nothing qualifies.
func PredictMulti(ctx context.Context, enc *Encoding, block *ModelBlock, threshold float64) ([]string, []LabelScore, error) {
	logits, err := runBlock(ctx, enc, block)
	if err != nil {
		return nil, nil, err
	}
	scored := SelectMulti(Sigmoid(logits), block.Labels, threshold)
	labels := make([]string, len(scored))
	for i, s := range scored {
		labels[i] = s.Label
	}
	return labels, scored, nil
}

func runBlock(ctx context.Context, enc *Encoding, block *ModelBlock) ([]float32, error) {
	if enc == nil {
		return nil, ErrEncodingMissing
	}
	logits, err := block.Model.Logits(ctx, enc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", block.Name, err)
	}
	if len(logits) != len(block.Labels) {
		return nil, fmt.Errorf("%s: %w: got %d, want %d", block.Name, ErrLogitsWidth, len(logits), len(block.Labels))
	}
	return logits, nil
}

// SelectSingle picks the first label with the highest probability.
func SelectSingle(probs []float64, labels []string) LabelScore {
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return LabelScore{Label: labels[best], Confidence: probs[best]}
}

// SelectMulti keeps labels with probability >= threshold, sorted by
// descending probability. Equal probabilities keep label order.
func SelectMulti(probs []float64, labels []string, threshold float64) []LabelScore {
	selected := make([]LabelScore, 0, len(probs))
	for i, p := range probs {
		if p >= threshold {
			selected = append(selected, LabelScore{Label: labels[i], Confidence: p})
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Confidence > selected[j].Confidence
	})
	return selected
}

// Softmax converts logits into a probability distribution.
func Softmax(logits []float32) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	maxVal := float64(logits[0])
	for _, v := range logits[1:] {
		if float64(v) > maxVal {
			maxVal = float64(v)
		}
	}
	sum := 0.0
	for i, v := range logits {
		e := math.Exp(float64(v) - maxVal)
		out[i] = e
		sum += e
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Sigmoid maps each logit independently into [0,1].
func Sigmoid(logits []float32) []float64 {
	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = 1.0 / (1.0 + math.Exp(-float64(v)))
	}
	return out
}
