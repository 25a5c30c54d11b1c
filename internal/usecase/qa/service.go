package qa

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fishgraph/fishgraph-api/internal/domain/apperr"
	"github.com/fishgraph/fishgraph-api/internal/domain/model"
	"github.com/fishgraph/fishgraph-api/internal/domain/repository"
	"github.com/fishgraph/fishgraph-api/internal/usecase/query"
)

// Service runs the question answering pipeline: search, context, generation.
type Service struct {
	engine    *SearchEngine
	assembler *ContextAssembler
	llm       repository.LLMClient
	history   repository.HistoryStore
	now       func() time.Time
}

// NewService wires the pipeline. history may be nil to disable persistence.
func NewService(runner repository.QueryRunner, builder *query.Builder, llm repository.LLMClient, history repository.HistoryStore) *Service {
	return &Service{
		engine:    NewSearchEngine(runner, builder),
		assembler: NewContextAssembler(runner, builder),
		llm:       llm,
		history:   history,
		now:       time.Now,
	}
}

// Ask answers question from the graph.
func (s *Service) Ask(ctx context.Context, question string) (*model.QAResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperr.Validation("Ask", "question must not be empty")
	}

	requestID := uuid.NewString()
	ctx = repository.WithRequestID(ctx, requestID)
	start := s.now()
	log.Printf("[QA] %s: %q", requestID, question)

	related, err := s.engine.Search(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("search related nodes: %w", err)
	}

	ids := make([]string, len(related))
	for i, r := range related {
		ids[i] = r.ID
	}
	knowledge, err := s.assembler.Assemble(ctx, ids)
	if err != nil {
		return nil, err
	}

	answer, genErr := s.llm.Generate(ctx, BuildPrompt(knowledge, question))

	exchange := &model.QAExchange{
		RequestID:      requestID,
		Question:       question,
		Answer:         answer,
		RelatedNodeIDs: ids,
		Provider:       s.llm.Name(),
		DurationMS:     s.now().Sub(start).Milliseconds(),
		CreatedAt:      start.UTC(),
	}
	if genErr != nil {
		exchange.Error = genErr.Error()
	}
	s.record(ctx, exchange)

	if genErr != nil {
		return nil, fmt.Errorf("generate answer: %w", genErr)
	}
	log.Printf("[QA] %s: answered with %d related nodes in %dms", requestID, len(related), exchange.DurationMS)
	return &model.QAResponse{Answer: answer, RelatedNodes: related}, nil
}

// History returns the most recent exchanges, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]model.QAExchange, error) {
	if s.history == nil {
		return []model.QAExchange{}, nil
	}
	if limit <= 0 || limit > 100 {
		return nil, apperr.Validation("History", "limit must be between 1 and 100")
	}
	return s.history.Recent(ctx, limit)
}

// Exchange returns one recorded exchange by request id.
func (s *Service) Exchange(ctx context.Context, requestID string) (*model.QAExchange, error) {
	if s.history == nil {
		return nil, apperr.NotFound("Exchange", "history is disabled")
	}
	return s.history.GetByRequestID(ctx, requestID)
}

// record persists an exchange. Failures are logged and never fail the request.
func (s *Service) record(ctx context.Context, exchange *model.QAExchange) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(context.WithoutCancel(ctx), exchange); err != nil {
		log.Printf("[QA] Warning: failed to record exchange %s: %v", exchange.RequestID, err)
	}
}
