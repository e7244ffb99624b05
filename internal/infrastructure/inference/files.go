package inference

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/winisorts/classifier-api/internal/domain/service"
)

// Export bundle layout
const (
	InferenceConfigFile = "inference_config.json"
	LabelsFile          = "labels.json"
	TokenizerDir        = "tokenizer"
	TokenizerFile       = "tokenizer.json"
)

// Values used when inference_config.json omits a key
const (
	DefaultMaxLength           = 128
	DefaultMultilabelThreshold = 0.5
)

type inferenceConfigFile struct {
	MaxLength           *float64 `json:"max_length"`
	MultilabelThreshold *float64 `json:"multilabel_threshold"`
}

// LoadInferenceConfig reads and validates inference_config.json
func LoadInferenceConfig(path string) (service.InferenceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return service.InferenceConfig{}, fmt.Errorf("read inference config: %w", err)
	}
	return parseInferenceConfig(data)
}

func parseInferenceConfig(data []byte) (service.InferenceConfig, error) {
	var raw inferenceConfigFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return service.InferenceConfig{}, fmt.Errorf("parse inference config: %w", err)
	}

	cfg := service.InferenceConfig{
		MaxLength:           DefaultMaxLength,
		MultilabelThreshold: DefaultMultilabelThreshold,
	}
	if raw.MaxLength != nil {
		if *raw.MaxLength != math.Trunc(*raw.MaxLength) {
			return service.InferenceConfig{}, fmt.Errorf("%w: max_length must be an integer, got %v", service.ErrInvalidConfig, *raw.MaxLength)
		}
		cfg.MaxLength = int(*raw.MaxLength)
	}
	if raw.MultilabelThreshold != nil {
		cfg.MultilabelThreshold = *raw.MultilabelThreshold
	}

	if err := cfg.Validate(); err != nil {
		return service.InferenceConfig{}, err
	}
	return cfg, nil
}

// LoadLabels reads an ordered label list from labels.json
func LoadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("parse labels %s: %w", path, err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%s: %w", path, service.ErrEmptyLabels)
	}
	return labels, nil
}
