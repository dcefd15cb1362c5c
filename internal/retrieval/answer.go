package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/gurukul-labs/gurukul/internal/azureai"
	"github.com/gurukul-labs/gurukul/internal/log"
)

const (
	// answerTemperature keeps grounded answers close to the source text.
	answerTemperature = 0.2

	// groundingInstruction forbids the model from answering outside the
	// supplied context. There is no local fallback answer: fabricating one
	// without context would break the grounding guarantee.
	groundingInstruction = "Answer using ONLY the provided context. " +
		"If the answer isn't in the context, say you don't know. " +
		"Cite with [1], [2], etc."
)

// Answerer produces natural-language answers strictly bounded by retrieved
// chunk context.
type Answerer struct {
	retriever *Retriever
	generator Generator
	logger    log.Logger
}

// NewAnswerer creates an Answerer. A nil logger falls back to a no-op
// logger.
func NewAnswerer(retriever *Retriever, generator Generator, logger log.Logger) *Answerer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Answerer{
		retriever: retriever,
		generator: generator,
		logger:    logger,
	}
}

// Answer retrieves up to DefaultTopK chunks for the query, joins their
// texts into a context block, and asks the generation provider to answer
// only from that block. When nothing matches, the context is empty and the
// instruction makes the model state that the answer is unknown. Provider
// errors propagate.
func (a *Answerer) Answer(ctx context.Context, query string, classNo int, subject string) (string, error) {
	results, err := a.retriever.Search(ctx, query, classNo, subject, DefaultTopK)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}

	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Text
	}
	contextBlock := strings.Join(texts, "\n\n")

	a.logger.Debug("answering with retrieved context",
		"subject", subject, "class_no", classNo, "chunks", len(results))

	messages := []azureai.Message{
		{Role: azureai.RoleSystem, Content: groundingInstruction},
		{Role: azureai.RoleUser, Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, query)},
	}

	reply, err := a.generator.Complete(ctx, messages, answerTemperature)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return strings.TrimSpace(reply), nil
}
