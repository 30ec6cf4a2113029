package embeddings

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/zeebo/blake3"
)

// DefaultHashDimension is the vector size of the hash embedder.
const DefaultHashDimension = 384

// HashEmbedder maps text to a signed feature-hash vector over lowercase word
// unigrams and bigrams, L2-normalized. Identical text always produces the
// identical vector, and texts sharing words have positive cosine similarity.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hash embedder; dim <= 0 selects the default.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	return &HashEmbedder{dim: dim}
}

// EmbedDocuments implements Embedder.
func (h *HashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(t)
	}
	return out, nil
}

// EmbedQuery implements Embedder.
func (h *HashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.embed(text), nil
}

// Dimension implements Provider.
func (h *HashEmbedder) Dimension() int { return h.dim }

// Close implements Provider.
func (h *HashEmbedder) Close() error { return nil }

func (h *HashEmbedder) embed(text string) []float32 {
	vec := make([]float32, h.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		h.add(vec, w, 1)
		if i > 0 {
			h.add(vec, words[i-1]+" "+w, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// Text without words still gets a usable unit vector.
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func (h *HashEmbedder) add(vec []float32, feature string, weight float32) {
	sum := blake3.Sum256([]byte(feature))
	idx := binary.LittleEndian.Uint64(sum[:8]) % uint64(h.dim)
	if sum[8]&1 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
