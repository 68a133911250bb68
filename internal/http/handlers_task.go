package http

import (
	"errors"
	"net/http"

	"effectif/internal/core"
	"effectif/internal/log"
	"effectif/internal/planning"
)

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	// Ids and numbers arrive string-typed when the frontend serializes a
	// form, so every numeric field is coerced.
	var payload struct {
		ProjectID any    `json:"project_id"`
		Text      string `json:"text"`
		Comment   string `json:"comment"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		Color     string `json:"color"`
		ETP       any    `json:"etp"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	projectID, err := coerceID(payload.ProjectID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project_id")
		return
	}
	start, err := core.ParseDate(payload.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
		return
	}
	end, err := core.ParseDate(payload.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
		return
	}

	in := planning.TaskInput{
		ProjectID: projectID,
		Text:      sanitizeInput(payload.Text),
		Comment:   sanitizeInput(payload.Comment),
		StartDate: start,
		EndDate:   end,
		Color:     sanitizeInput(payload.Color),
	}
	if payload.ETP != nil {
		etp, err := core.CoerceETP(payload.ETP)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		in.ETP = &etp
	}

	created, err := s.svc.CreateTask(r.Context(), in)
	if err != nil {
		// An unknown project is a caller mistake, not a missing resource.
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "unknown project")
			return
		}
		writeDomainError(w, err)
		return
	}

	s.invalidateReport()
	s.logger.InfoContext(r.Context(), "Task created",
		log.FieldTask, created.Text, log.FieldOperation, log.OpCreate)
	writeSuccess(w, http.StatusCreated, map[string]any{"task": newTaskView(created)})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Decoded into a map so absent fields stay absent instead of zeroed.
	var payload map[string]any
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var upd planning.TaskUpdate
	if v, ok := payload["text"]; ok {
		text, ok := v.(string)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid text")
			return
		}
		text = sanitizeInput(text)
		upd.Text = &text
	}
	if v, ok := payload["comment"]; ok {
		comment, ok := v.(string)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid comment")
			return
		}
		comment = sanitizeInput(comment)
		upd.Comment = &comment
	}
	if v, ok := payload["start_date"]; ok {
		raw, ok := v.(string)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid start_date")
			return
		}
		d, err := core.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
			return
		}
		upd.StartDate = &d
	}
	if v, ok := payload["end_date"]; ok {
		raw, ok := v.(string)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid end_date")
			return
		}
		d, err := core.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
			return
		}
		upd.EndDate = &d
	}
	if v, ok := payload["color"]; ok {
		color, ok := v.(string)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid color")
			return
		}
		color = sanitizeInput(color)
		upd.Color = &color
	}
	if v, ok := payload["etp"]; ok {
		etp, err := core.CoerceETP(v)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		upd.ETP = &etp
	}

	updated, err := s.svc.UpdateTask(r.Context(), id, upd)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateReport()
	s.logger.InfoContext(r.Context(), "Task updated",
		log.FieldTask, updated.Text, log.FieldOperation, log.OpUpdate)
	writeSuccess(w, http.StatusOK, map[string]any{"task": newTaskView(updated)})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.DeleteTask(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateReport()
	s.logger.InfoContext(r.Context(), "Task deleted",
		"task_id", id, log.FieldOperation, log.OpDelete)
	writeSuccess(w, http.StatusOK, map[string]any{"id": id})
}
