package http

import (
	"net/http"

	"effectif/internal/core"
	"effectif/internal/log"
)

// handleUpdateETP upserts a manual allocation value for one
// (project, period) cell of the ETP table.
func (s *Server) handleUpdateETP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Project string `json:"project"`
		Period  string `json:"period"`
		ETP     any    `json:"etp"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	project := sanitizeInput(payload.Project)
	period := sanitizeInput(payload.Period)
	if project == "" || period == "" {
		writeError(w, http.StatusBadRequest, "project and period are required")
		return
	}

	// The table editor submits the cell content verbatim, so the value may
	// arrive as a string.
	etp, err := core.CoerceETP(payload.ETP)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.svc.SetOverride(r.Context(), project, period, etp); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateReport()
	s.logger.InfoContext(r.Context(), "ETP override stored",
		log.NewFields().
			WithOperation(log.OpUpdate).
			WithAllocation(project, period, etp).
			ToSlice()...)
	writeSuccess(w, http.StatusOK, map[string]any{
		"project": project,
		"period":  period,
		"etp":     etp,
	})
}
