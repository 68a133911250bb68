package http

import (
	"fmt"
	"net/http"

	"effectif/internal/core"
	"effectif/internal/log"
)

// taskView is the template and API representation of a task: display
// dates for rendering, raw ISO dates for edit forms, and the derived
// timeline geometry.
type taskView struct {
	ID           int64   `json:"id"`
	ProjectID    int64   `json:"project_id"`
	Text         string  `json:"text"`
	Comment      string  `json:"comment"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	Dates        string  `json:"dates"`
	RawStartDate string  `json:"raw_start_date"`
	RawEndDate   string  `json:"raw_end_date"`
	Color        string  `json:"color"`
	ETP          float64 `json:"etp"`
	Start        float64 `json:"start"`
	Width        float64 `json:"width"`
}

type projectView struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	ColorScheme string     `json:"color_scheme"`
	Tasks       []taskView `json:"tasks"`
}

// milestone marks a fixed label on the timeline header.
type milestone struct {
	Position string
	Text     string
}

// displayPeriods is the column layout of the timeline header. It is finer
// grained than the allocation catalog: 2025 is shown quarter by quarter.
var displayPeriods = []string{
	"2024 Q3-Q4",
	"2025 Q1",
	"2025 Q2",
	"2025 Q3",
	"2025 Q4",
	"2026-2027",
}

var milestones = []milestone{
	{Position: "left-1/3", Text: "RFI"},
	{Position: "left-1/2", Text: "RFP"},
	{Position: "left-2/3", Text: "Pilot"},
	{Position: "right-1/6", Text: "Déploiement"},
}

func newTaskView(t core.Task) taskView {
	left, width := core.GridPosition(t.StartDate, t.EndDate)
	return taskView{
		ID:           t.ID,
		ProjectID:    t.ProjectID,
		Text:         t.Text,
		Comment:      t.Comment,
		StartDate:    t.StartDate.Display(),
		EndDate:      t.EndDate.Display(),
		Dates:        fmt.Sprintf("%s - %s", t.StartDate.Display(), t.EndDate.Display()),
		RawStartDate: t.StartDate.ISO(),
		RawEndDate:   t.EndDate.ISO(),
		Color:        t.Color,
		ETP:          t.ETP,
		Start:        left,
		Width:        width,
	}
}

func newProjectView(p core.Project) projectView {
	view := projectView{
		ID:          p.ID,
		Name:        p.Name,
		ColorScheme: p.ColorScheme,
		Tasks:       make([]taskView, 0, len(p.Tasks)),
	}
	for _, t := range p.Tasks {
		view.Tasks = append(view.Tasks, newTaskView(t))
	}
	return view
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/timeline", http.StatusFound)
}

func (s *Server) handleETPRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/etp_table", http.StatusFound)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	projects, err := s.svc.Projects(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Project list error", log.FieldError, err)
		http.Error(w, "failed to load projects", http.StatusInternalServerError)
		return
	}

	views := make([]projectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, newProjectView(p))
	}

	data := struct {
		Projects   []projectView
		Periods    []string
		Milestones []milestone
	}{
		Projects:   views,
		Periods:    displayPeriods,
		Milestones: milestones,
	}

	if err := s.templates.ExecuteTemplate(w, "timeline.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Timeline template execution failed",
			log.FieldError, err, "template", "timeline.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleETPTable(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	report, err := s.getReport(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Allocation report error", log.FieldError, err)
		http.Error(w, "failed to compute allocation report", http.StatusInternalServerError)
		return
	}

	data := struct {
		Periods      []string
		Rows         []core.AllocationRow
		PeriodTotals map[string]float64
		GrandTotal   float64
	}{
		Periods:      s.svc.Catalog().Names(),
		Rows:         report.Rows,
		PeriodTotals: report.PeriodTotals,
		GrandTotal:   report.GrandTotal,
	}

	if err := s.templates.ExecuteTemplate(w, "etp_table.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "ETP table template execution failed",
			log.FieldError, err, "template", "etp_table.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
