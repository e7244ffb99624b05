package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/winisorts/classifier-api/internal/domain/service"
)

// Model graph tensor names
const (
	inputIDsName      = "input_ids"
	attentionMaskName = "attention_mask"
	tokenTypeIDsName  = "token_type_ids"
	logitsName        = "logits"
)

// ONNXOptions configures session creation for one model
type ONNXOptions struct {
	SeqLen         int
	NumLabels      int
	PoolSize       int
	IntraOpThreads int
	InterOpThreads int
}

// InitRuntime loads the onnxruntime shared library once per process
func InitRuntime(libraryPath string) error {
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if ort.IsInitialized() {
		return nil
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// DestroyRuntime releases the onnxruntime environment
func DestroyRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// ONNXModel is a sequence-classification graph with a fixed pool of
// sessions. An AdvancedSession binds its tensors at creation, so each Run
// needs exclusive use of one session; the pool hands them out.
type ONNXModel struct {
	path     string
	seqLen   int
	width    int
	declared int
	sessions chan *onnxSession
	all      []*onnxSession
}

type onnxSession struct {
	session       *ort.AdvancedSession
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
}

// OpenONNXModel inspects the graph, checks its logits width against the
// label count and creates the session pool.
func OpenONNXModel(path string, opts ONNXOptions) (*ONNXModel, error) {
	if opts.SeqLen <= 0 || opts.NumLabels <= 0 {
		return nil, fmt.Errorf("invalid model options: seq_len=%d num_labels=%d", opts.SeqLen, opts.NumLabels)
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 1
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", path, err)
	}
	outputName, declared, err := selectLogitsOutput(outputs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if declared > 0 && declared != opts.NumLabels {
		return nil, fmt.Errorf("%s: %w: model=%d labels=%d", path, service.ErrWidthMismatch, declared, opts.NumLabels)
	}
	inputNames, err := selectInputs(inputs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m := &ONNXModel{
		path:     path,
		seqLen:   opts.SeqLen,
		width:    opts.NumLabels,
		declared: declared,
		sessions: make(chan *onnxSession, opts.PoolSize),
	}
	for i := 0; i < opts.PoolSize; i++ {
		ss, err := newONNXSession(path, inputNames, outputName, opts)
		if err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("create onnx session %d/%d: %w", i+1, opts.PoolSize, err)
		}
		m.all = append(m.all, ss)
		m.sessions <- ss
	}
	return m, nil
}

// Logits runs the graph on one encoding. Waiting for a free session
// honours ctx; the run itself is not interruptible.
func (m *ONNXModel) Logits(ctx context.Context, enc *service.Encoding) ([]float32, error) {
	if enc.Len() != m.seqLen {
		return nil, fmt.Errorf("encoding length %d does not match model sequence length %d", enc.Len(), m.seqLen)
	}

	var ss *onnxSession
	select {
	case ss = <-m.sessions:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { m.sessions <- ss }()

	copy(ss.inputIDs.GetData(), enc.InputIDs)
	if ss.attentionMask != nil {
		copy(ss.attentionMask.GetData(), enc.AttentionMask)
	}
	if ss.tokenTypeIDs != nil {
		copy(ss.tokenTypeIDs.GetData(), enc.TypeIDs)
	}

	if err := ss.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	raw := ss.output.GetData()
	logits := make([]float32, len(raw))
	copy(logits, raw)
	return logits, nil
}

// OutputWidth returns the width declared by the graph, 0 when dynamic
func (m *ONNXModel) OutputWidth() int {
	return m.declared
}

// Close destroys every session and tensor in the pool
func (m *ONNXModel) Close() error {
	var errs []error
	for _, ss := range m.all {
		errs = append(errs, ss.destroy())
	}
	m.all = nil
	return errors.Join(errs...)
}

func newONNXSession(path string, inputNames []string, outputName string, opts ONNXOptions) (*onnxSession, error) {
	so, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer so.Destroy()

	if opts.IntraOpThreads > 0 {
		if err := so.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("set intra threads: %w", err)
		}
	}
	if opts.InterOpThreads > 0 {
		if err := so.SetInterOpNumThreads(opts.InterOpThreads); err != nil {
			return nil, fmt.Errorf("set inter threads: %w", err)
		}
	}

	ss := &onnxSession{}
	inputShape := ort.NewShape(1, int64(opts.SeqLen))
	inputValues := make([]ort.Value, 0, len(inputNames))
	for _, name := range inputNames {
		tensor, err := ort.NewEmptyTensor[int64](inputShape)
		if err != nil {
			_ = ss.destroy()
			return nil, fmt.Errorf("allocate %s tensor: %w", name, err)
		}
		switch name {
		case inputIDsName:
			ss.inputIDs = tensor
		case attentionMaskName:
			ss.attentionMask = tensor
		case tokenTypeIDsName:
			ss.tokenTypeIDs = tensor
		}
		inputValues = append(inputValues, tensor)
	}

	ss.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(opts.NumLabels)))
	if err != nil {
		_ = ss.destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	ss.session, err = ort.NewAdvancedSession(path, inputNames, []string{outputName}, inputValues, []ort.Value{ss.output}, so)
	if err != nil {
		_ = ss.destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return ss, nil
}

func (ss *onnxSession) destroy() error {
	var errs []error
	if ss.session != nil {
		errs = append(errs, ss.session.Destroy())
	}
	if ss.inputIDs != nil {
		errs = append(errs, ss.inputIDs.Destroy())
	}
	if ss.attentionMask != nil {
		errs = append(errs, ss.attentionMask.Destroy())
	}
	if ss.tokenTypeIDs != nil {
		errs = append(errs, ss.tokenTypeIDs.Destroy())
	}
	if ss.output != nil {
		errs = append(errs, ss.output.Destroy())
	}
	return errors.Join(errs...)
}

// selectLogitsOutput prefers an output named logits, else the only output.
// The returned width is the last dimension, 0 when it is symbolic.
func selectLogitsOutput(outputs []ort.InputOutputInfo) (string, int, error) {
	if len(outputs) == 0 {
		return "", 0, errors.New("model has no outputs")
	}
	chosen := -1
	for i, out := range outputs {
		if strings.EqualFold(out.Name, logitsName) {
			chosen = i
			break
		}
	}
	if chosen < 0 {
		if len(outputs) > 1 {
			names := make([]string, len(outputs))
			for i, out := range outputs {
				names[i] = out.Name
			}
			return "", 0, fmt.Errorf("multiple outputs without logits: %v", names)
		}
		chosen = 0
	}

	out := outputs[chosen]
	width := 0
	if n := len(out.Dimensions); n > 0 && out.Dimensions[n-1] > 0 {
		width = int(out.Dimensions[n-1])
	}
	return out.Name, width, nil
}

// selectInputs returns the graph inputs this adapter can feed, in graph order
func selectInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	names := make([]string, 0, len(inputs))
	hasIDs := false
	for _, in := range inputs {
		switch in.Name {
		case inputIDsName:
			hasIDs = true
			names = append(names, in.Name)
		case attentionMaskName, tokenTypeIDsName:
			names = append(names, in.Name)
		default:
			return nil, fmt.Errorf("unsupported model input %q", in.Name)
		}
	}
	if !hasIDs {
		return nil, fmt.Errorf("model has no %s input", inputIDsName)
	}
	return names, nil
}
