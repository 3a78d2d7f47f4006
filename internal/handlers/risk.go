package handlers

import (
	"net/http"
	"strings"

	"drug-risk-service/internal/common/logging"
)

// RiskDrugs enriches one page of the upstream drug list with risk assessments
// @Summary Risk-scored drug list
// @Description Fetches a page of drugs from the upstream catalog and attaches a risk assessment to every record. Query parameters are forwarded to the catalog unchanged.
// @Tags risk
// @Produce json
// @Security BearerAuth
// @Param page query int false "Upstream page number"
// @Param limit query int false "Upstream page size"
// @Success 200 {object} RiskDrugsResponse
// @Failure 401 {object} ErrorResponse "No bearer credential available"
// @Failure 502 {object} ErrorResponse "Upstream rejected the drug list request"
// @Failure 500 {object} ErrorResponse "Unexpected failure"
// @Router /risk/drugs [get]
func (h *Handlers) RiskDrugs(w http.ResponseWriter, r *http.Request) {
	page, err := h.enricher.Enrich(r.Context(), bearerToken(r), r.URL.Query())
	if err != nil {
		h.logger.WithContext(r.Context()).Warn("Risk enrichment failed", logging.Err(err))
		h.writeError(w, err)
		return
	}

	drugs := make([]map[string]interface{}, len(page.Drugs))
	for i, d := range page.Drugs {
		drugs[i] = d
	}

	resp := RiskDrugsResponse{Success: true, Data: RiskDrugsData{Drugs: drugs, Pagination: page.Pagination}}
	if len(resp.Data.Pagination) == 0 {
		resp.Data.Pagination = []byte("null")
	}
	writeJSON(w, http.StatusOK, resp)
}

// bearerToken extracts the credential from an Authorization: Bearer header
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
