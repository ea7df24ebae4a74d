package http

import (
	"net/http"

	"github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/go-chi/chi/v5"
)

type groupSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Machines    []string `json:"machines"`
}

// ListGroups handles the GET /groups request.
func (s *Server) ListGroups(w http.ResponseWriter, r *http.Request) {
	defs, err := s.Engine.Definitions()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]groupSummary, 0, len(defs))
	for _, def := range defs {
		sum := groupSummary{Name: def.Name, Description: def.Description, Machines: []string{}}
		for _, m := range def.Machines {
			sum.Machines = append(sum.Machines, m.Name)
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetGroup handles the GET /groups/{group} request.
func (s *Server) GetGroup(w http.ResponseWriter, r *http.Request) {
	def, err := s.Engine.Definition(chi.URLParam(r, "group"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// GetGroupGraph handles the GET /groups/{group}/graph request. With ?session=ID the
// session's current vector is highlighted.
func (s *Server) GetGroupGraph(w http.ResponseWriter, r *http.Request) {
	chart, err := s.Engine.Chart(chi.URLParam(r, "group"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var overlay *graph.GraphOverlay
	if id := r.URL.Query().Get("session"); id != "" {
		snap, err := s.Sessions.Load(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		overlay = &graph.GraphOverlay{Vector: snap.Vector}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(graph.GenerateMermaid(chart, overlay)))
}
