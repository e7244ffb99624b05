package inference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/winisorts/classifier-api/internal/domain/service"
	"github.com/winisorts/classifier-api/internal/infrastructure/config"
)

const widthCheckText = "width check"

// ModelOpener builds the classifier stored at path
type ModelOpener func(path string, numLabels, seqLen int) (service.Model, error)

// TokenizerOpener builds the shared tokenizer stored in dir
type TokenizerOpener func(dir string, maxLength int) (service.Tokenizer, error)

// Loader reads an export directory into a service.Bundle
type Loader struct {
	ModelFile     string
	OpenModel     ModelOpener
	OpenTokenizer TokenizerOpener
	Log           *zap.Logger
}

// NewONNXLoader returns a Loader backed by onnxruntime and HF tokenizers
func NewONNXLoader(cfg *config.ModelConfig, log *zap.Logger) *Loader {
	return &Loader{
		ModelFile: cfg.ModelFile,
		OpenModel: func(path string, numLabels, seqLen int) (service.Model, error) {
			return OpenONNXModel(path, ONNXOptions{
				SeqLen:         seqLen,
				NumLabels:      numLabels,
				PoolSize:       cfg.SessionPoolSize,
				IntraOpThreads: cfg.IntraOpThreads,
				InterOpThreads: cfg.InterOpThreads,
			})
		},
		OpenTokenizer: func(dir string, maxLength int) (service.Tokenizer, error) {
			return OpenTokenizer(dir, maxLength)
		},
		Log: log,
	}
}

// Load reads the inference config, the shared tokenizer and the three
// heads. Any failure releases what was already opened.
func (l *Loader) Load(exportDir string) (bundle *service.Bundle, err error) {
	log := l.Log
	if log == nil {
		log = zap.NewNop()
	}

	configPath := filepath.Join(exportDir, InferenceConfigFile)
	cfg, err := LoadInferenceConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	digest := sha256.New()
	fmt.Fprintf(digest, "max_length=%d;threshold=%g;", cfg.MaxLength, cfg.MultilabelThreshold)

	var opened []any
	defer func() {
		if err != nil {
			closeAll(opened)
		}
	}()

	tokenizer, err := l.OpenTokenizer(filepath.Join(exportDir, TokenizerDir), cfg.MaxLength)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	opened = append(opened, tokenizer)

	sample, err := tokenizer.Encode(widthCheckText)
	if err != nil {
		return nil, fmt.Errorf("encode width check sample: %w", err)
	}

	blocks := make(map[string]*service.ModelBlock, 3)
	for _, head := range []string{service.HeadPrimary, service.HeadMethod, service.HeadCategories} {
		block, model, err := l.loadBlock(exportDir, head, cfg.MaxLength, sample, digest)
		if model != nil {
			opened = append(opened, model)
		}
		if err != nil {
			return nil, err
		}
		blocks[head] = block
		log.Info("Loaded model block",
			zap.String("head", head),
			zap.Int("labels", len(block.Labels)),
		)
	}

	return &service.Bundle{
		Config:      cfg,
		Tokenizer:   tokenizer,
		Primary:     blocks[service.HeadPrimary],
		Method:      blocks[service.HeadMethod],
		Categories:  blocks[service.HeadCategories],
		Fingerprint: hex.EncodeToString(digest.Sum(nil))[:16],
	}, nil
}

func (l *Loader) loadBlock(exportDir, head string, seqLen int, sample *service.Encoding, digest io.Writer) (*service.ModelBlock, service.Model, error) {
	dir := filepath.Join(exportDir, head)
	labelsPath := filepath.Join(dir, LabelsFile)
	labels, err := LoadLabels(labelsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", head, err)
	}
	fmt.Fprintf(digest, "%s=%q;", head, labels)

	modelPath := filepath.Join(dir, l.ModelFile)
	info, err := os.Stat(modelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: model file: %w", head, err)
	}
	fmt.Fprintf(digest, "%d;%d;", info.Size(), info.ModTime().UnixNano())

	model, err := l.OpenModel(modelPath, len(labels), seqLen)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: open model: %w", head, err)
	}

	block, err := service.NewModelBlock(head, model, labels)
	if err != nil {
		return nil, model, err
	}
	if model.OutputWidth() == 0 {
		if err := checkRuntimeWidth(block, sample); err != nil {
			return nil, model, err
		}
	}
	return block, model, nil
}

// checkRuntimeWidth runs one inference for graphs whose logits width is
// symbolic, so a label mismatch is caught before serving.
func checkRuntimeWidth(block *service.ModelBlock, sample *service.Encoding) error {
	logits, err := block.Model.Logits(context.Background(), sample)
	if err != nil {
		return fmt.Errorf("%s: width check: %w", block.Name, err)
	}
	if len(logits) != len(block.Labels) {
		return fmt.Errorf("%s: %w: model=%d labels=%d", block.Name, service.ErrWidthMismatch, len(logits), len(block.Labels))
	}
	return nil
}

// CloseBundle releases the native resources held by a bundle
func CloseBundle(b *service.Bundle) error {
	if b == nil {
		return nil
	}
	items := []any{b.Tokenizer}
	for _, block := range b.Blocks() {
		if block != nil {
			items = append(items, block.Model)
		}
	}
	return closeAll(items)
}

func closeAll(items []any) error {
	var errs []error
	for _, item := range items {
		if c, ok := item.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// Warmup runs one inference through every head so the first request does
// not pay session initialisation costs.
func Warmup(ctx context.Context, b *service.Bundle, sample string) (time.Duration, error) {
	start := time.Now()
	enc, err := b.Tokenizer.Encode(sample)
	if err != nil {
		return 0, fmt.Errorf("warmup encode: %w", err)
	}
	for _, block := range []*service.ModelBlock{b.Primary, b.Method} {
		if _, err := service.PredictSingle(ctx, enc, block); err != nil {
			return 0, fmt.Errorf("warmup: %w", err)
		}
	}
	if _, _, err := service.PredictMulti(ctx, enc, b.Categories, b.Config.MultilabelThreshold); err != nil {
		return 0, fmt.Errorf("warmup: %w", err)
	}
	return time.Since(start), nil
}
