package api

import (
	"net/http"
	"strconv"

	"github.com/mirutec/sage/internal/log"
	"github.com/mirutec/sage/internal/retrieval"
)

// maxSearchTopK bounds how many raw results a single search may request.
const maxSearchTopK = 20

// SearchService ranks knowledge entries for a query.
type SearchService interface {
	Retrieve(query string, topK int, minScore float64) []retrieval.Match
}

// searchHandler serves GET /api/v1/search, exposing raw retrieval results
// for debugging and dataset tuning.
type searchHandler struct {
	retriever SearchService
	logger    log.Logger
}

type searchResult struct {
	Input      string  `json:"input"`
	Output     string  `json:"output"`
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity"`
	Score      float64 `json:"score"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Results []searchResult `json:"results"`
}

func (h *searchHandler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		WriteError(w, http.StatusBadRequest, "missing_query", "query parameter q is required", h.logger)
		return
	}

	topK := 0
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSearchTopK {
			WriteError(w, http.StatusBadRequest, "invalid_top_k",
				"top_k must be an integer between 1 and 20", h.logger)
			return
		}
		topK = n
	}

	matches := h.retriever.Retrieve(query, topK, 0)

	results := make([]searchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, searchResult{
			Input:      m.Entry.Input,
			Output:     m.Entry.Output,
			Source:     m.Entry.Source,
			Similarity: m.Similarity,
			Score:      m.Score,
		})
	}

	WriteJSON(w, http.StatusOK, searchResponse{Query: query, Results: results}, h.logger)
}
