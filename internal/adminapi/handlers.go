package adminapi

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"focus/internal/classify"
	focuscontext "focus/internal/context"
	"focus/internal/httputil"
	"focus/internal/skill"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleJobStats exposes the Job Queue's stats() operation (spec.md
// §4.3), which spec.md defines but names no caller for — SPEC_FULL.md §C
// gives it one.
func (s *Server) handleJobStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.Jobs.Stats(r.Context())
	if err != nil {
		s.Logger.Error("job stats failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "failed to load job stats")
		return
	}
	out := make(map[string]int, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	httputil.RespondJSON(w, http.StatusOK, out)
}

type skillResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Scope       string `json:"scope"`
	Source      string `json:"source"`
	Path        string `json:"path"`
}

// handleListSkills exposes skill.ListInstalledSkills, internally only
// consumed by the Context Retriever's skill-matching step (spec.md §4.10),
// read-only here per SPEC_FULL.md §C.
func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = "all"
	}
	if err := validation.Validate(scope, validation.In("personal", "project", "all")); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "scope must be personal, project, or all")
		return
	}
	projectPath := r.URL.Query().Get("project_path")

	installed := skill.ListInstalledSkills(scope, projectPath)
	out := make([]skillResponse, 0, len(installed))
	for _, sk := range installed {
		out = append(out, skillResponse{
			Name:        sk.Name,
			Description: sk.Description,
			Scope:       sk.Scope,
			Source:      sk.Source,
			Path:        sk.Path,
		})
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"skills": out})
}

type contextBlockResponse struct {
	SourceType     string  `json:"source_type"`
	SourceID       string  `json:"source_id"`
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	RelevanceScore float64 `json:"relevance_score"`
	TokenEstimate  int     `json:"token_estimate"`
}

type searchQuery struct {
	Prompt string
	Cwd    string
}

func (q searchQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Prompt, validation.Required),
	)
}

// handleContextSearch is the Context Search read path SPEC_FULL.md §C
// adds: the formatter's overflow notice references a `focus search`
// command spec.md never defines an endpoint for. This reuses the
// Classifier and Context Retriever verbatim and returns the full ranked
// block list, unlike PreSubmit's token-budget-truncated text.
func (s *Server) handleContextSearch(w http.ResponseWriter, r *http.Request) {
	q := searchQuery{Prompt: r.URL.Query().Get("prompt"), Cwd: r.URL.Query().Get("cwd")}
	if err := q.Validate(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	projects, err := s.Entities.ActiveProjects(ctx)
	if err != nil {
		s.Logger.Error("context search: load projects failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "failed to load projects")
		return
	}
	people, err := s.Entities.PeopleWithNames(ctx)
	if err != nil {
		s.Logger.Error("context search: load people failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "failed to load people")
		return
	}

	classifier := classify.New(projects, people, s.State)
	classification := classifier.Classify(q.Prompt, q.Cwd)

	retriever := focuscontext.NewRetriever(s.Entities)
	blocks, err := retriever.Retrieve(ctx, classification)
	if err != nil {
		s.Logger.Error("context search: retrieve failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "failed to retrieve context")
		return
	}

	out := make([]contextBlockResponse, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, contextBlockResponse{
			SourceType:     string(b.SourceType),
			SourceID:       b.SourceID,
			Title:          b.Title,
			Content:        b.Content,
			RelevanceScore: b.RelevanceScore,
			TokenEstimate:  b.TokenEstimate,
		})
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"confidence": classification.Confidence,
		"blocks":     out,
	})
}
