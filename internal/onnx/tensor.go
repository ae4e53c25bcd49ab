package onnx

import (
	"errors"
	"fmt"
)

// Tensor is a row-major tensor prepared for ONNX input or read from output.
type Tensor[T float32 | int64] struct {
	Data  []T
	Shape []int64
}

// NewSequenceTensor builds a single-sequence token tensor with shape [1, n].
func NewSequenceTensor(ids []int64) (Tensor[int64], error) {
	if len(ids) == 0 {
		return Tensor[int64]{}, errors.New("empty sequence")
	}
	data := make([]int64, len(ids))
	copy(data, ids)
	return Tensor[int64]{Data: data, Shape: []int64{1, int64(len(ids))}}, nil
}

// NewAttentionMask builds an all-ones attention mask with shape [1, n].
func NewAttentionMask(n int) (Tensor[int64], error) {
	if n <= 0 {
		return Tensor[int64]{}, fmt.Errorf("mask length must be > 0, got %d", n)
	}
	data := make([]int64, n)
	for i := range data {
		data[i] = 1
	}
	return Tensor[int64]{Data: data, Shape: []int64{1, int64(n)}}, nil
}

// ValidateRank ensures shape has the given rank and positive dimensions.
func ValidateRank(shape []int64, rank int) error {
	if len(shape) != rank {
		return fmt.Errorf("shape rank %d != %d", len(shape), rank)
	}
	for i, v := range shape {
		if v <= 0 {
			return fmt.Errorf("dimension %d must be > 0, got %d", i, v)
		}
	}
	return nil
}

// LastStep returns the final time step of a [1, T, V] logits tensor.
func LastStep(data []float32, shape []int64) ([]float32, error) {
	if err := ValidateRank(shape, 3); err != nil {
		return nil, err
	}
	steps, vocab := int(shape[1]), int(shape[2])
	if len(data) < steps*vocab {
		return nil, fmt.Errorf("logits length %d shorter than shape %v", len(data), shape)
	}
	start := (steps - 1) * vocab
	return data[start : start+vocab], nil
}

// ArgMax returns the index of the largest value, or -1 for empty input.
// Ties resolve to the lowest index.
func ArgMax(data []float32) int {
	if len(data) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(data); i++ {
		if data[i] > data[best] {
			best = i
		}
	}
	return best
}

// TensorStats computes simple statistics for debug output.
func TensorStats(data []float32) (float32, float32, float32) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	var minVal, maxVal, mean float32
	minVal, maxVal = data[0], data[0]
	var sum float64
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
		sum += float64(v)
	}
	mean = float32(sum / float64(len(data)))
	return minVal, maxVal, mean
}
