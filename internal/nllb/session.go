package nllb

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/MeKo-Tech/lotra/internal/onnx"
	onnxrt "github.com/yalue/onnxruntime_go"
)

// Tensor names of the optimum seq2seq export.
var (
	encoderInputs  = []string{"input_ids", "attention_mask"}
	encoderOutputs = []string{"last_hidden_state"}
	decoderInputs  = []string{"input_ids", "encoder_attention_mask", "encoder_hidden_states"}
	decoderOutputs = []string{"logits"}
)

// Encoded is the encoder output reused across decoding steps.
type Encoded struct {
	Hidden onnx.Tensor[float32]
	Mask   onnx.Tensor[int64]
}

// seq2seq is an encoder-decoder model. Decode returns the logits of the last
// decoder position.
type seq2seq interface {
	Encode(ids []int64) (*Encoded, error)
	Decode(enc *Encoded, decoderIDs []int64) ([]float32, error)
	Close() error
}

// onnxModel runs the encoder and decoder graphs with ONNX Runtime.
type onnxModel struct {
	mu      sync.RWMutex
	encoder *onnxrt.DynamicAdvancedSession
	decoder *onnxrt.DynamicAdvancedSession
}

func checkNames(path string, wantIn, wantOut []string) error {
	inputs, outputs, err := onnxrt.GetInputOutputInfo(path)
	if err != nil {
		return fmt.Errorf("failed to get model input/output info: %w", err)
	}
	has := func(infos []onnxrt.InputOutputInfo, name string) bool {
		return slices.ContainsFunc(infos, func(i onnxrt.InputOutputInfo) bool { return i.Name == name })
	}
	for _, n := range wantIn {
		if !has(inputs, n) {
			return fmt.Errorf("%s: missing input %q", path, n)
		}
	}
	for _, n := range wantOut {
		if !has(outputs, n) {
			return fmt.Errorf("%s: missing output %q", path, n)
		}
	}
	return nil
}

func createSession(path string, in, out []string, cfg Config) (*onnxrt.DynamicAdvancedSession, error) {
	if err := checkNames(path, in, out); err != nil {
		return nil, err
	}

	sessionOptions, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		if err := sessionOptions.Destroy(); err != nil {
			slog.Warn("Failed to destroy session options", "error", err)
		}
	}()

	if err := onnx.ConfigureSessionForGPU(sessionOptions, cfg.GPU); err != nil {
		return nil, fmt.Errorf("failed to configure GPU: %w", err)
	}

	if cfg.NumThreads > 0 {
		if err := sessionOptions.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := onnxrt.NewDynamicAdvancedSession(path, in, out, sessionOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", path, err)
	}
	return session, nil
}

func newONNXModel(cfg Config) (*onnxModel, error) {
	if err := onnx.InitRuntime(cfg.GPU.UseGPU); err != nil {
		return nil, err
	}

	enc, err := createSession(cfg.EncoderPath, encoderInputs, encoderOutputs, cfg)
	if err != nil {
		return nil, err
	}
	dec, err := createSession(cfg.DecoderPath, decoderInputs, decoderOutputs, cfg)
	if err != nil {
		_ = enc.Destroy()
		return nil, err
	}
	return &onnxModel{encoder: enc, decoder: dec}, nil
}

func destroyAll(values []onnxrt.Value) {
	for _, v := range values {
		if v != nil {
			_ = v.Destroy()
		}
	}
}

// Encode runs the encoder and copies the hidden states out of runtime memory.
func (m *onnxModel) Encode(ids []int64) (*Encoded, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.encoder == nil {
		return nil, errors.New("encoder session is closed")
	}

	seq, err := onnx.NewSequenceTensor(ids)
	if err != nil {
		return nil, err
	}
	mask, err := onnx.NewAttentionMask(len(ids))
	if err != nil {
		return nil, err
	}

	idsT, err := onnxrt.NewTensor(onnxrt.NewShape(seq.Shape...), seq.Data)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer func() { _ = idsT.Destroy() }()
	maskT, err := onnxrt.NewTensor(onnxrt.NewShape(mask.Shape...), mask.Data)
	if err != nil {
		return nil, fmt.Errorf("create mask tensor: %w", err)
	}
	defer func() { _ = maskT.Destroy() }()

	outputs := []onnxrt.Value{nil}
	if err := m.encoder.Run([]onnxrt.Value{idsT, maskT}, outputs); err != nil {
		return nil, fmt.Errorf("encoder inference failed: %w", err)
	}
	defer destroyAll(outputs)

	hidden, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("expected float32 encoder output, got %T", outputs[0])
	}
	shape := []int64(hidden.GetShape())
	if err := onnx.ValidateRank(shape, 3); err != nil {
		return nil, fmt.Errorf("unexpected encoder output: %w", err)
	}

	return &Encoded{
		Hidden: onnx.Tensor[float32]{Data: slices.Clone(hidden.GetData()), Shape: shape},
		Mask:   mask,
	}, nil
}

// Decode runs the decoder over the full prefix and returns the logits of
// its last position.
func (m *onnxModel) Decode(enc *Encoded, decoderIDs []int64) ([]float32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.decoder == nil {
		return nil, errors.New("decoder session is closed")
	}

	seq, err := onnx.NewSequenceTensor(decoderIDs)
	if err != nil {
		return nil, err
	}
	idsT, err := onnxrt.NewTensor(onnxrt.NewShape(seq.Shape...), seq.Data)
	if err != nil {
		return nil, fmt.Errorf("create decoder input tensor: %w", err)
	}
	defer func() { _ = idsT.Destroy() }()
	maskT, err := onnxrt.NewTensor(onnxrt.NewShape(enc.Mask.Shape...), enc.Mask.Data)
	if err != nil {
		return nil, fmt.Errorf("create encoder mask tensor: %w", err)
	}
	defer func() { _ = maskT.Destroy() }()
	hiddenT, err := onnxrt.NewTensor(onnxrt.NewShape(enc.Hidden.Shape...), enc.Hidden.Data)
	if err != nil {
		return nil, fmt.Errorf("create hidden state tensor: %w", err)
	}
	defer func() { _ = hiddenT.Destroy() }()

	outputs := []onnxrt.Value{nil}
	if err := m.decoder.Run([]onnxrt.Value{idsT, maskT, hiddenT}, outputs); err != nil {
		return nil, fmt.Errorf("decoder inference failed: %w", err)
	}
	defer destroyAll(outputs)

	logits, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("expected float32 logits, got %T", outputs[0])
	}
	last, err := onnx.LastStep(logits.GetData(), []int64(logits.GetShape()))
	if err != nil {
		return nil, fmt.Errorf("unexpected decoder output: %w", err)
	}
	return slices.Clone(last), nil
}

// Close destroys both sessions.
func (m *onnxModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	if m.encoder != nil {
		errs = append(errs, m.encoder.Destroy())
		m.encoder = nil
	}
	if m.decoder != nil {
		errs = append(errs, m.decoder.Destroy())
		m.decoder = nil
	}
	return errors.Join(errs...)
}
