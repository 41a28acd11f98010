package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/ragdex/ragdex/internal/ai"
	"github.com/ragdex/ragdex/internal/model"
	"github.com/ragdex/ragdex/internal/vectorindex"
)

// NotFoundSentinel is what the model must return verbatim when the retrieved
// context does not hold the answer.
const NotFoundSentinel = "The document does not contain this information."

var ErrEmptyQuestion = errors.New("question is required")

type AnswerResult struct {
	Answer      string
	Matches     []string
	SourceCount int
}

type AnswerService struct {
	embedder    ai.IEmbedder
	generator   ai.IGenerator
	store       vectorindex.Store
	defaultTopK int
	maxTopK     int
}

func NewAnswerService(embedder ai.IEmbedder, generator ai.IGenerator, store vectorindex.Store, defaultTopK, maxTopK int) *AnswerService {
	if defaultTopK <= 0 {
		defaultTopK = 40
	}
	if maxTopK < defaultTopK {
		maxTopK = defaultTopK
	}
	return &AnswerService{
		embedder:    embedder,
		generator:   generator,
		store:       store,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
	}
}

// Answer retrieves the nearest chunks for the question and asks the model for
// a grounded reply. Matches come back as the same source-tagged lines that
// were fed to the model.
func (s *AnswerService) Answer(ctx context.Context, history []model.ChatTurn, question string, topK int) (*AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}
	if topK > s.maxTopK {
		topK = s.maxTopK
	}
	logger := logutil.GetLogger(ctx).With(zap.Int("top_k", topK))

	queryVec, err := s.embedder.Embed(ctx, question, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	results, err := s.store.Query(ctx, queryVec, topK, nil, true)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	logger.Info("retrieved context chunks", zap.Int("matches", len(results)))

	matches := make([]string, 0, len(results))
	for _, m := range results {
		source := m.Metadata["source"]
		if source == "" {
			source = "UNKNOWN"
		}
		matches = append(matches, fmt.Sprintf("[SOURCE: %s] %s", source, m.Metadata["text"]))
	}

	if len(matches) == 0 {
		// Nothing indexed yet; no point asking the model.
		return &AnswerResult{Answer: NotFoundSentinel, Matches: []string{}, SourceCount: 0}, nil
	}

	prompt := buildPrompt(history, strings.Join(matches, "\n---\n"), question)
	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &AnswerResult{
		Answer:      answer,
		Matches:     matches,
		SourceCount: len(matches),
	}, nil
}

func buildPrompt(history []model.ChatTurn, contextBlock, question string) string {
	var historyText strings.Builder
	for _, turn := range history {
		historyText.WriteString(strings.ToUpper(turn.Role))
		historyText.WriteString(": ")
		historyText.WriteString(turn.Text)
		historyText.WriteString("\n")
	}
	return fmt.Sprintf(`You are an AI assistant inside a RAG system.

Your job is:
1. Answer ONLY using the retrieved context below.
2. Maintain natural conversation flow using the chat history.
3. NEVER hallucinate or guess anything not present in the context.
4. If the answer is not in the context, say EXACTLY:
   %q

--- CHAT HISTORY ---
%s
--- RETRIEVED CONTEXT (from documents) ---
%s

--- NEW USER QUESTION ---
%s

Provide a helpful and natural response based ONLY on the context above.
`, NotFoundSentinel, historyText.String(), contextBlock, question)
}
