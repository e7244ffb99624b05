package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/daulet/tokenizers"

	"github.com/winisorts/classifier-api/internal/domain/service"
)

// rawEncoder is the subset of *tokenizers.Tokenizer the adapter needs
type rawEncoder interface {
	Encode(str string, addSpecialTokens bool) ([]uint32, []string)
}

// Tokenizer adapts a Hugging Face tokenizer to fixed-length encodings.
// The underlying tokenizer is read-only after load, so Encode is safe for
// concurrent use.
type Tokenizer struct {
	raw       rawEncoder
	closer    func() error
	maxLength int
	padID     int64
	suffixLen int
}

// OpenTokenizer loads <dir>/tokenizer.json
func OpenTokenizer(dir string, maxLength int) (*Tokenizer, error) {
	path := filepath.Join(dir, TokenizerFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokenizer: %w", err)
	}
	padID, err := padTokenID(data)
	if err != nil {
		return nil, err
	}

	tk, err := tokenizers.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, err)
	}

	adapter, err := newTokenizer(tk, maxLength, padID)
	if err != nil {
		_ = tk.Close()
		return nil, err
	}
	adapter.closer = tk.Close
	return adapter, nil
}

func newTokenizer(raw rawEncoder, maxLength int, padID int64) (*Tokenizer, error) {
	if maxLength <= 0 {
		return nil, fmt.Errorf("invalid max length %d", maxLength)
	}
	suffix, err := specialSuffixLen(raw)
	if err != nil {
		return nil, err
	}
	return &Tokenizer{
		raw:       raw,
		maxLength: maxLength,
		padID:     padID,
		suffixLen: suffix,
	}, nil
}

// Encode tokenizes text with special tokens, then truncates or pads it to
// exactly MaxLength positions.
func (t *Tokenizer) Encode(text string) (*service.Encoding, error) {
	ids, _ := t.raw.Encode(text, true)
	return fitToLength(ids, t.maxLength, t.suffixLen, t.padID), nil
}

// MaxLength returns the fixed sequence length
func (t *Tokenizer) MaxLength() int {
	return t.maxLength
}

// Close releases the native tokenizer
func (t *Tokenizer) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer()
}

// fitToLength truncates content tokens while preserving the trailing
// special tokens, then right-pads with padID.
func fitToLength(ids []uint32, maxLength, suffixLen int, padID int64) *service.Encoding {
	if len(ids) > maxLength {
		if suffixLen >= maxLength || suffixLen > len(ids) {
			suffixLen = 0
		}
		kept := make([]uint32, 0, maxLength)
		kept = append(kept, ids[:maxLength-suffixLen]...)
		kept = append(kept, ids[len(ids)-suffixLen:]...)
		ids = kept
	}

	enc := &service.Encoding{
		InputIDs:      make([]int64, maxLength),
		AttentionMask: make([]int64, maxLength),
		TypeIDs:       make([]int64, maxLength),
	}
	for i := 0; i < maxLength; i++ {
		if i < len(ids) {
			enc.InputIDs[i] = int64(ids[i])
			enc.AttentionMask[i] = 1
			continue
		}
		enc.InputIDs[i] = padID
	}
	return enc
}

// specialSuffixLen counts the special tokens the post-processor appends
// after the content, by encoding a probe with and without them.
func specialSuffixLen(raw rawEncoder) (int, error) {
	plain, _ := raw.Encode("hello", false)
	framed, _ := raw.Encode("hello", true)
	if len(plain) == 0 {
		return 0, errors.New("tokenizer produced no tokens for probe text")
	}
	for start := 0; start+len(plain) <= len(framed); start++ {
		if equalIDs(framed[start:start+len(plain)], plain) {
			return len(framed) - start - len(plain), nil
		}
	}
	return 0, nil
}

func equalIDs(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type tokenizerJSON struct {
	Padding *struct {
		PadID int64 `json:"pad_id"`
	} `json:"padding"`
	AddedTokens []struct {
		ID      int64  `json:"id"`
		Content string `json:"content"`
	} `json:"added_tokens"`
}

var padTokens = map[string]bool{"[PAD]": true, "<pad>": true, "<PAD>": true}

// padTokenID reads the pad id from tokenizer.json, falling back to the
// added pad token and finally to 0.
func padTokenID(data []byte) (int64, error) {
	var tj tokenizerJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return 0, fmt.Errorf("parse tokenizer: %w", err)
	}
	if tj.Padding != nil {
		return tj.Padding.PadID, nil
	}
	for _, tok := range tj.AddedTokens {
		if padTokens[tok.Content] {
			return tok.ID, nil
		}
	}
	return 0, nil
}
