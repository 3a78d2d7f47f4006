package handlers

import (
	"encoding/json"
	"net/http"

	"drug-risk-service/internal/common/errors"
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Backend string `json:"backend"`
	TS      string `json:"ts"`
}

// RiskDrugsResponse is the success body of GET /risk/drugs
type RiskDrugsResponse struct {
	Success bool          `json:"success"`
	Data    RiskDrugsData `json:"data"`
}

// RiskDrugsData holds the enriched drugs and the upstream pagination,
// which is null when the upstream sent none
type RiskDrugsData struct {
	Drugs      []map[string]interface{} `json:"drugs"`
	Pagination json.RawMessage          `json:"pagination" swaggertype:"object"`
}

// ErrorResponse is the failure body. Backend is set on 502 and Error on 500.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Backend interface{} `json:"backend,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteInternalError answers 500 with the generic failure body
func WriteInternalError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Success: false,
		Message: "Failed to compute drug risk",
		Error:   err.Error(),
	})
}

// writeError maps the error taxonomy onto the three failure bodies
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	appErr, _ := errors.As(err)

	switch errors.HTTPStatus(err) {
	case http.StatusUnauthorized:
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Success: false, Message: appErr.Message})
	case http.StatusBadGateway:
		resp := ErrorResponse{Success: false, Message: "Upstream rejected the drug list request", Backend: h.config.UpstreamBaseURL}
		if appErr.Message != "" {
			resp.Message = appErr.Message
		}
		if payload, ok := appErr.Context["backend"]; ok && payload != nil {
			resp.Backend = payload
		}
		writeJSON(w, http.StatusBadGateway, resp)
	default:
		WriteInternalError(w, err)
	}
}
