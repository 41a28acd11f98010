package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
)

// fakeEmbedder derives a deterministic vector from each text so equal inputs
// always land on the same point.
type fakeEmbedder struct {
	dimension  int
	batchCalls int
	err        error
}

func newFakeEmbedder(dimension int) *fakeEmbedder {
	return &fakeEmbedder{dimension: dimension}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	f.batchCalls++
	if f.err != nil {
		return nil, f.err
	}
	vecs := make([][]float32, 0, len(texts))
	for _, text := range texts {
		sum := sha256.Sum256([]byte(text))
		vec := make([]float32, f.dimension)
		for i := range vec {
			vec[i] = float32(sum[i])/255 + 0.01
		}
		vecs = append(vecs, vec)
	}
	return vecs, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

func (f *fakeEmbedder) Dimension() int { return f.dimension }

type fakeGenerator struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// failingGate fails the dedup check for one specific hash and delegates the
// rest to a real checker.
type failingGate struct {
	inner    DedupChecker
	failHash string
}

func (g *failingGate) IsAlreadyIndexed(ctx context.Context, contentHash string) (bool, error) {
	if contentHash == g.failHash {
		return false, errors.New("index unreachable")
	}
	return g.inner.IsAlreadyIndexed(ctx, contentHash)
}

var errBoom = fmt.Errorf("boom")
