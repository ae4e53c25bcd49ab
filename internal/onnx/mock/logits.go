// Package mock builds synthetic model outputs for tests that exercise
// decoding without loading ONNX models.
package mock

// Logits is a synthetic decoder output as a flat array with shape [1, T, V].
type Logits struct {
	Data  []float32
	Shape []int64
}

// NewGreedyPathLogits builds [1, T, V] logits whose per-step argmax yields
// the given token ids.
func NewGreedyPathLogits(ids []int64, vocab int, high, low float32) Logits {
	if vocab <= 0 || len(ids) == 0 {
		return Logits{Data: nil, Shape: []int64{}}
	}
	steps := len(ids)
	data := make([]float32, steps*vocab)
	for i := range data {
		data[i] = low
	}
	for t, id := range ids {
		if id >= 0 && int(id) < vocab {
			data[t*vocab+int(id)] = high
		}
	}
	return Logits{Data: data, Shape: []int64{1, int64(steps), int64(vocab)}}
}

// NewStepLogits returns a single vocabulary row whose argmax is id.
func NewStepLogits(id int64, vocab int) []float32 {
	return NewGreedyPathLogits([]int64{id}, vocab, 1, 0).Data
}

// HiddenStates is a synthetic encoder output with shape [1, T, D].
type HiddenStates struct {
	Data  []float32
	Shape []int64
}

// NewHiddenStates builds encoder states filled with value.
func NewHiddenStates(steps, dim int, value float32) HiddenStates {
	if steps <= 0 || dim <= 0 {
		return HiddenStates{Data: nil, Shape: []int64{}}
	}
	data := make([]float32, steps*dim)
	for i := range data {
		data[i] = value
	}
	return HiddenStates{Data: data, Shape: []int64{1, int64(steps), int64(dim)}}
}
