package service

import (
	"context"
	"errors"
	"fmt"
)

// Head names, which double as the export subdirectory names
const (
	HeadPrimary    = "primary"
	HeadMethod     = "method"
	HeadCategories = "categories"
)

// Model block construction errors
var (
	ErrEmptyLabels     = errors.New("label set is empty")
	ErrDuplicateLabel  = errors.New("label set contains duplicates")
	ErrWidthMismatch   = errors.New("model output width does not match label count")
	ErrNilModel        = errors.New("model is nil")
	ErrInvalidConfig   = errors.New("invalid inference config")
	ErrLogitsWidth     = errors.New("logits width does not match label count")
	ErrEncodingMissing = errors.New("encoding is nil")
)

// InferenceConfig holds the startup parameters shared by every head
type InferenceConfig struct {
	MaxLength           int     `json:"max_length"`
	MultilabelThreshold float64 `json:"multilabel_threshold"`
}

// Validate checks the config ranges.
func (c InferenceConfig) Validate() error {
	if c.MaxLength <= 0 {
		return fmt.Errorf("%w: max_length must be positive, got %d", ErrInvalidConfig, c.MaxLength)
	}
	if c.MultilabelThreshold < 0 || c.MultilabelThreshold > 1 {
		return fmt.Errorf("%w: multilabel_threshold must be within [0,1], got %v", ErrInvalidConfig, c.MultilabelThreshold)
	}
	return nil
}

// Encoding is the fixed-length token representation of one input text
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int64
	TypeIDs       []int64
}

// Len returns the sequence length.
func (e *Encoding) Len() int {
	if e == nil {
		return 0
	}
	return len(e.InputIDs)
}

// Tokenizer turns text into a fixed-length Encoding.
// Implementations must be deterministic and safe for concurrent use.
type Tokenizer interface {
	Encode(text string) (*Encoding, error)
	MaxLength() int
}

// Model runs a classifier and returns one raw score per output position.
// Implementations must be safe for concurrent use.
type Model interface {
	Logits(ctx context.Context, enc *Encoding) ([]float32, error)

	// OutputWidth is the number of output positions, or 0 when the model
	// does not declare a fixed width.
	OutputWidth() int
}

// ModelBlock pairs a classifier with its ordered label set
type ModelBlock struct {
	Name   string
	Model  Model
	Labels []string
}

// NewModelBlock validates that model and labels agree and builds the block.
func NewModelBlock(name string, model Model, labels []string) (*ModelBlock, error) {
	if model == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNilModel)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyLabels)
	}
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			return nil, fmt.Errorf("%s: %w: %q", name, ErrDuplicateLabel, l)
		}
		seen[l] = struct{}{}
	}
	if w := model.OutputWidth(); w > 0 && w != len(labels) {
		return nil, fmt.Errorf("%s: %w: model=%d labels=%d", name, ErrWidthMismatch, w, len(labels))
	}

	owned := make([]string, len(labels))
	copy(owned, labels)
	return &ModelBlock{Name: name, Model: model, Labels: owned}, nil
}

// LabelScore is a label with its confidence
type LabelScore struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classification is the combined result of the three heads
type Classification struct {
	PrimaryCategory     LabelScore   `json:"primary_category"`
	ResearchMethodology LabelScore   `json:"research_methodology"`
	Categories          []LabelScore `json:"categories"`
}

// CategoryLabels returns the selected category labels in ranked order.
func (c *Classification) CategoryLabels() []string {
	labels := make([]string, len(c.Categories))
	for i, s := range c.Categories {
		labels[i] = s.Label
	}
	return labels
}

// Bundle is everything loaded from an export directory.
// It is immutable once built and shared by all requests.
type Bundle struct {
	Config      InferenceConfig
	Tokenizer   Tokenizer
	Primary     *ModelBlock
	Method      *ModelBlock
	Categories  *ModelBlock
	Fingerprint string
}

// Blocks returns the model blocks in head order.
func (b *Bundle) Blocks() []*ModelBlock {
	return []*ModelBlock{b.Primary, b.Method, b.Categories}
}
