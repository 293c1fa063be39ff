package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mirutec/sage/internal/dataset"
	"github.com/mirutec/sage/internal/log"
)

// DatasetService validates and ingests dataset payloads.
type DatasetService interface {
	Ingest(ctx context.Context, name, description, format string, payload []byte) (dataset.Result, error)
}

// KnowledgeInfo exposes read-only store statistics.
type KnowledgeInfo interface {
	Count() int
	Sources() map[string]int
}

// datasetHandler serves the dataset endpoints.
type datasetHandler struct {
	ingestor DatasetService
	info     KnowledgeInfo
	maxBody  int64
	logger   log.Logger
}

type datasetUploadRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Format      string `json:"format"`
	Payload     string `json:"payload"`
}

type datasetUploadResponse struct {
	Message      string `json:"message"`
	DatasetID    string `json:"datasetId"`
	RecordsAdded int    `json:"recordsAdded"`
}

type datasetInfoResponse struct {
	TotalEntries int            `json:"totalEntries"`
	Sources      map[string]int `json:"sources"`
}

// upload handles POST /api/v1/datasets.
func (h *datasetHandler) upload(w http.ResponseWriter, r *http.Request) {
	// The JSON envelope adds some overhead over the raw payload cap.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody+(64<<10))

	var req datasetUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "dataset payload too large", h.logger)
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	res, err := h.ingestor.Ingest(r.Context(), req.Name, req.Description, req.Format, []byte(req.Payload))
	if err != nil {
		h.writeIngestError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, datasetUploadResponse{
		Message:      "dataset ingested successfully",
		DatasetID:    res.DatasetID,
		RecordsAdded: res.RecordsAdded,
	}, h.logger)
}

// writeIngestError maps ingestion failures onto stable API error codes.
func (h *datasetHandler) writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dataset.ErrPayloadTooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "dataset payload too large", h.logger)
	case errors.Is(err, dataset.ErrMissingName):
		WriteError(w, http.StatusBadRequest, "missing_name", "dataset name is required", h.logger)
	case errors.Is(err, dataset.ErrEmptyPayload):
		WriteError(w, http.StatusBadRequest, "empty_payload", "dataset payload is empty", h.logger)
	case errors.Is(err, dataset.ErrUnsupportedFormat):
		WriteError(w, http.StatusBadRequest, "unsupported_format", "format must be json or jsonl", h.logger)
	case errors.Is(err, dataset.ErrMalformedPayload):
		WriteError(w, http.StatusBadRequest, "malformed_payload", "dataset payload is not valid JSON", h.logger)
	case errors.Is(err, dataset.ErrNoValidRecords):
		WriteError(w, http.StatusBadRequest, "no_valid_records", "dataset contains no valid records", h.logger)
	default:
		h.logger.Error("dataset ingestion failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "dataset ingestion failed", h.logger)
	}
}

// list handles GET /api/v1/datasets: per-source entry counts plus total.
func (h *datasetHandler) list(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, datasetInfoResponse{
		TotalEntries: h.info.Count(),
		Sources:      h.info.Sources(),
	}, h.logger)
}
