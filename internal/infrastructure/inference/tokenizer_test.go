package inference

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordEncoder maps each whitespace-separated word to a stable id and frames
// the sequence like BERT: [CLS]=101 ... [SEP]=102.
type wordEncoder struct {
	vocab map[string]uint32
}

func newWordEncoder() *wordEncoder {
	return &wordEncoder{vocab: map[string]uint32{}}
}

func (e *wordEncoder) id(word string) uint32 {
	if id, ok := e.vocab[word]; ok {
		return id
	}
	id := uint32(1000 + len(e.vocab))
	e.vocab[word] = id
	return id
}

func (e *wordEncoder) Encode(str string, addSpecialTokens bool) ([]uint32, []string) {
	words := strings.Fields(str)
	ids := make([]uint32, 0, len(words)+2)
	if addSpecialTokens {
		ids = append(ids, 101)
	}
	for _, w := range words {
		ids = append(ids, e.id(w))
	}
	if addSpecialTokens {
		ids = append(ids, 102)
	}
	return ids, words
}

func TestFitToLength(t *testing.T) {
	t.Run("pads short input", func(t *testing.T) {
		enc := fitToLength([]uint32{101, 7, 102}, 6, 1, 0)

		assert.Equal(t, []int64{101, 7, 102, 0, 0, 0}, enc.InputIDs)
		assert.Equal(t, []int64{1, 1, 1, 0, 0, 0}, enc.AttentionMask)
		assert.Equal(t, []int64{0, 0, 0, 0, 0, 0}, enc.TypeIDs)
	})

	t.Run("uses pad id", func(t *testing.T) {
		enc := fitToLength([]uint32{0, 7, 2}, 5, 1, 1)

		assert.Equal(t, []int64{0, 7, 2, 1, 1}, enc.InputIDs)
		assert.Equal(t, []int64{1, 1, 1, 0, 0}, enc.AttentionMask)
	})

	t.Run("truncates keeping trailing special token", func(t *testing.T) {
		enc := fitToLength([]uint32{101, 1, 2, 3, 4, 5, 102}, 4, 1, 0)

		assert.Equal(t, []int64{101, 1, 2, 102}, enc.InputIDs)
		assert.Equal(t, []int64{1, 1, 1, 1}, enc.AttentionMask)
	})

	t.Run("truncates plainly without suffix", func(t *testing.T) {
		enc := fitToLength([]uint32{1, 2, 3, 4}, 2, 0, 0)

		assert.Equal(t, []int64{1, 2}, enc.InputIDs)
	})

	t.Run("exact length untouched", func(t *testing.T) {
		enc := fitToLength([]uint32{101, 5, 102}, 3, 1, 0)

		assert.Equal(t, []int64{101, 5, 102}, enc.InputIDs)
		assert.Equal(t, []int64{1, 1, 1}, enc.AttentionMask)
	})
}

func TestTokenizer_Encode(t *testing.T) {
	tk, err := newTokenizer(newWordEncoder(), 8, 0)
	require.NoError(t, err)
	assert.Equal(t, 8, tk.MaxLength())
	assert.Equal(t, 1, tk.suffixLen)

	t.Run("always produces max length", func(t *testing.T) {
		for _, text := range []string{"a", "a b c", strings.Repeat("word ", 50)} {
			enc, err := tk.Encode(text)

			require.NoError(t, err)
			assert.Len(t, enc.InputIDs, 8)
			assert.Len(t, enc.AttentionMask, 8)
			assert.Len(t, enc.TypeIDs, 8)
		}
	})

	t.Run("long input keeps framing", func(t *testing.T) {
		enc, err := tk.Encode(strings.Repeat("word ", 50))

		require.NoError(t, err)
		assert.Equal(t, int64(101), enc.InputIDs[0])
		assert.Equal(t, int64(102), enc.InputIDs[7])
	})

	t.Run("deterministic", func(t *testing.T) {
		first, err := tk.Encode("graph neural networks for chemistry")
		require.NoError(t, err)
		second, err := tk.Encode("graph neural networks for chemistry")
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}

func TestNewTokenizer_InvalidLength(t *testing.T) {
	_, err := newTokenizer(newWordEncoder(), 0, 0)

	assert.Error(t, err)
}

func TestPadTokenID(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected int64
	}{
		{name: "padding section", content: `{"padding": {"pad_id": 3}}`, expected: 3},
		{name: "added pad token", content: `{"added_tokens": [{"id": 0, "content": "<s>"}, {"id": 1, "content": "<pad>"}]}`, expected: 1},
		{name: "bert style", content: `{"added_tokens": [{"id": 0, "content": "[PAD]"}]}`, expected: 0},
		{name: "nothing declared", content: `{"padding": null}`, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := padTokenID([]byte(tt.content))

			require.NoError(t, err)
			assert.Equal(t, tt.expected, id)
		})
	}

	t.Run("malformed", func(t *testing.T) {
		_, err := padTokenID([]byte(`{`))

		assert.Error(t, err)
	})
}
