package http

import (
	"net/http"

	"effectif/internal/log"
	"effectif/internal/planning"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.svc.Projects(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Project list error", log.FieldError, err)
		writeDomainError(w, err)
		return
	}

	views := make([]projectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, newProjectView(p))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"projects": views})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string `json:"name"`
		ColorScheme string `json:"colorScheme"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.svc.CreateProject(r.Context(), sanitizeInput(payload.Name), sanitizeInput(payload.ColorScheme))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateReport()
	s.logger.InfoContext(r.Context(), "Project created",
		log.FieldProject, created.Name, log.FieldOperation, log.OpCreate)
	writeSuccess(w, http.StatusCreated, map[string]any{"project": newProjectView(created)})
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var payload struct {
		Name        *string `json:"name"`
		ColorScheme *string `json:"colorScheme"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	upd := planning.ProjectUpdate{Name: payload.Name, ColorScheme: payload.ColorScheme}
	updated, err := s.svc.UpdateProject(r.Context(), id, upd)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateReport()
	s.logger.InfoContext(r.Context(), "Project updated",
		log.FieldProject, updated.Name, log.FieldOperation, log.OpUpdate)
	writeSuccess(w, http.StatusOK, map[string]any{"project": newProjectView(updated)})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.DeleteProject(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateReport()
	s.logger.InfoContext(r.Context(), "Project deleted",
		"project_id", id, log.FieldOperation, log.OpDelete)
	writeSuccess(w, http.StatusOK, map[string]any{"id": id})
}
