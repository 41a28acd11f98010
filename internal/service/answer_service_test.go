package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ragdex/ragdex/internal/model"
	"github.com/ragdex/ragdex/internal/vectorindex"
)

func seedStore(t *testing.T, store vectorindex.Store, embedder *fakeEmbedder, chunks map[string]string) {
	t.Helper()
	var records []vectorindex.Record
	i := 0
	for text, source := range chunks {
		vec, err := embedder.Embed(context.Background(), text, "RETRIEVAL_DOCUMENT")
		require.NoError(t, err)
		records = append(records, vectorindex.Record{
			ID:     fmt.Sprintf("seed-%d", i),
			Vector: vec,
			Metadata: map[string]string{
				"text":   text,
				"source": source,
			},
		})
		i++
	}
	require.NoError(t, store.Upsert(context.Background(), records))
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	store := vectorindex.NewMemoryStore(testDimension)
	svc := NewAnswerService(newFakeEmbedder(testDimension), &fakeGenerator{}, store, 40, 100)

	for _, question := range []string{"", "   ", "\n"} {
		_, err := svc.Answer(context.Background(), nil, question, 0)
		require.ErrorIs(t, err, ErrEmptyQuestion)
	}
}

func TestAnswer_EmptyIndexShortCircuits(t *testing.T) {
	store := vectorindex.NewMemoryStore(testDimension)
	gen := &fakeGenerator{reply: "should never be used"}
	svc := NewAnswerService(newFakeEmbedder(testDimension), gen, store, 40, 100)

	result, err := svc.Answer(context.Background(), nil, "anything at all?", 0)
	require.NoError(t, err)
	require.Equal(t, NotFoundSentinel, result.Answer)
	require.Empty(t, result.Matches)
	require.Zero(t, result.SourceCount)
	require.Empty(t, gen.prompts, "no model call when there is no context")
}

func TestAnswer_BuildsGroundedPrompt(t *testing.T) {
	store := vectorindex.NewMemoryStore(testDimension)
	embedder := newFakeEmbedder(testDimension)
	gen := &fakeGenerator{reply: "Paris is the capital."}
	svc := NewAnswerService(embedder, gen, store, 40, 100)

	seedStore(t, store, embedder, map[string]string{
		"The capital of France is Paris.": "geo.txt",
		"Bordeaux is known for wine.":     "geo.txt",
	})

	history := []model.ChatTurn{
		{Role: "user", Text: "hi"},
		{Role: "model", Text: "hello"},
	}
	result, err := svc.Answer(context.Background(), history, "What is the capital of France?", 0)
	require.NoError(t, err)
	require.Equal(t, "Paris is the capital.", result.Answer)
	require.Equal(t, len(result.Matches), result.SourceCount)
	for _, match := range result.Matches {
		require.True(t, strings.HasPrefix(match, "[SOURCE: geo.txt] "), "match %q", match)
	}

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	require.Contains(t, prompt, "USER: hi\nMODEL: hello\n")
	require.Contains(t, prompt, "[SOURCE: geo.txt] The capital of France is Paris.")
	require.Contains(t, prompt, "\n---\n")
	require.Contains(t, prompt, "What is the capital of France?")
	require.Contains(t, prompt, NotFoundSentinel)
}

func TestAnswer_UnknownSourceFallback(t *testing.T) {
	store := vectorindex.NewMemoryStore(testDimension)
	embedder := newFakeEmbedder(testDimension)
	gen := &fakeGenerator{reply: "ok"}
	svc := NewAnswerService(embedder, gen, store, 40, 100)

	vec, err := embedder.Embed(context.Background(), "orphan chunk", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.NoError(t, store.Upsert(context.Background(), []vectorindex.Record{{
		ID:       "orphan-0",
		Vector:   vec,
		Metadata: map[string]string{"text": "orphan chunk"},
	}}))

	result, err := svc.Answer(context.Background(), nil, "what about the orphan?", 0)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	require.Equal(t, "[SOURCE: UNKNOWN] orphan chunk", result.Matches[0])
}

func TestAnswer_TopKClamped(t *testing.T) {
	store := vectorindex.NewMemoryStore(testDimension)
	embedder := newFakeEmbedder(testDimension)
	gen := &fakeGenerator{reply: "ok"}
	svc := NewAnswerService(embedder, gen, store, 2, 3)

	chunks := make(map[string]string)
	for i := 0; i < 6; i++ {
		chunks[fmt.Sprintf("chunk number %d", i)] = "many.txt"
	}
	seedStore(t, store, embedder, chunks)

	// Requested top_k above the cap is clamped, not rejected.
	result, err := svc.Answer(context.Background(), nil, "question", 500)
	require.NoError(t, err)
	require.Len(t, result.Matches, 3)

	// Zero falls back to the configured default.
	result, err = svc.Answer(context.Background(), nil, "question", 0)
	require.NoError(t, err)
	require.Len(t, result.Matches, 2)
}

func TestAnswer_GeneratorErrorPropagates(t *testing.T) {
	store := vectorindex.NewMemoryStore(testDimension)
	embedder := newFakeEmbedder(testDimension)
	gen := &fakeGenerator{err: errBoom}
	svc := NewAnswerService(embedder, gen, store, 40, 100)

	seedStore(t, store, embedder, map[string]string{"some context": "a.txt"})

	_, err := svc.Answer(context.Background(), nil, "question", 0)
	require.ErrorIs(t, err, errBoom)
}
