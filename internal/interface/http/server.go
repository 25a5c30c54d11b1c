package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/fishgraph/fishgraph-api/internal/domain/apperr"
	"github.com/fishgraph/fishgraph-api/internal/domain/model"
)

// GraphService is the read side of the knowledge graph.
type GraphService interface {
	FetchGraph(ctx context.Context, filter model.QueryFilter) (model.Graph, error)
	InitialGraph(ctx context.Context) (model.Graph, error)
	Search(ctx context.Context, q model.SearchQuery) (model.Graph, error)
	SearchByTypes(ctx context.Context, types []string) (model.Graph, error)
	NodeWithRelations(ctx context.Context, nodeID string) (model.Graph, error)
	RelationshipTypes(ctx context.Context, nodeID string) ([]string, error)
	Related(ctx context.Context, nodeID string) (model.Graph, error)
	RelatedByType(ctx context.Context, nodeID, relType string) (model.Graph, error)
	Stats(ctx context.Context) (model.GraphStats, error)
}

// QAService answers questions and exposes the exchange log.
type QAService interface {
	Ask(ctx context.Context, question string) (*model.QAResponse, error)
	History(ctx context.Context, limit int) ([]model.QAExchange, error)
	Exchange(ctx context.Context, requestID string) (*model.QAExchange, error)
}

// Pinger checks that the graph database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies for the HTTP API server
type Server struct {
	graph  GraphService
	qa     QAService
	health Pinger
}

// NewServer initializes a new API server with the required dependencies
func NewServer(graph GraphService, qa QAService, health Pinger) *Server {
	return &Server{graph: graph, qa: qa, health: health}
}

// RegisterRoutes registers all API endpoints with a new ServeMux
func (s *Server) RegisterRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/graph", s.handleGraph)
	mux.HandleFunc("GET /api/v1/graph/initial", s.handleInitialGraph)
	mux.HandleFunc("GET /api/v1/graph/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/search", s.handleSearch)
	mux.HandleFunc("GET /api/v1/search/types", s.handleSearchTypes)
	mux.HandleFunc("GET /api/v1/nodes/{id}", s.handleNode)
	mux.HandleFunc("GET /api/v1/nodes/{id}/relationship-types", s.handleRelationshipTypes)
	mux.HandleFunc("GET /api/v1/nodes/{id}/related", s.handleRelated)
	mux.HandleFunc("GET /api/v1/nodes/{id}/related/{type}", s.handleRelatedByType)
	mux.HandleFunc("POST /api/v1/qa", s.handleAsk)
	mux.HandleFunc("GET /api/v1/qa/history", s.handleHistory)
	mux.HandleFunc("GET /api/v1/qa/history/{requestId}", s.handleExchange)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return mux
}

type AskRequest struct {
	Question string `json:"question"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.QueryFilter{
		Labels:     listParam(q["labels"]),
		SearchText: q.Get("search"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, apperr.Validation("FetchGraph", "limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}
	g, err := s.graph.FetchGraph(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleInitialGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.graph.InitialGraph(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.graph.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	g, err := s.graph.Search(r.Context(), model.NewSearchQuery(q.Get("query"), q.Get("type")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleSearchTypes(w http.ResponseWriter, r *http.Request) {
	g, err := s.graph.SearchByTypes(r.Context(), listParam(r.URL.Query()["types"]))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	g, err := s.graph.NodeWithRelations(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleRelationshipTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.graph.RelationshipTypes(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": types})
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	g, err := s.graph.Related(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleRelatedByType(w http.ResponseWriter, r *http.Request) {
	g, err := s.graph.RelatedByType(r.Context(), r.PathValue("id"), r.PathValue("type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, apperr.Validation("Ask", "invalid request payload"))
		return
	}
	resp, err := s.qa.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, apperr.Validation("History", "limit must be an integer"))
			return
		}
		limit = n
	}
	items, err := s.qa.History(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	e, err := s.qa.Exchange(r.Context(), r.PathValue("requestId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Ping(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listParam accepts both repeated and comma-separated query values.
func listParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConnectivity:
		return http.StatusServiceUnavailable
	case apperr.KindUpstreamModel:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError || errors.Is(err, apperr.ErrUpstreamModel) {
		log.Printf("[Server] Request failed (%d): %v", status, err)
	}
	writeJSON(w, status, ErrorResponse{Error: apperr.Public(err), Kind: apperr.KindOf(err).String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] Failed to encode response: %v", err)
	}
}
