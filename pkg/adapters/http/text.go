package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aretw0/lattice/pkg/domain"
)

type llmsConfig struct {
	LLMsText *string `json:"llms_txt"`
}

// GetLLMsText handles the public GET /llms.txt request.
func (s *Server) GetLLMsText(w http.ResponseWriter, r *http.Request) {
	content, err := s.texts.Get(r.Context())
	if errors.Is(err, domain.ErrTextNotSet) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(content))
}

// GetLLMsConfig handles the admin GET /admin/customize/llms.json request.
// An unset text is reported as an empty string.
func (s *Server) GetLLMsConfig(w http.ResponseWriter, r *http.Request) {
	content, err := s.texts.Get(r.Context())
	if err != nil && !errors.Is(err, domain.ErrTextNotSet) {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, llmsConfig{LLMsText: &content})
}

// PutLLMsConfig handles the admin PUT /admin/customize/llms.json request.
func (s *Server) PutLLMsConfig(w http.ResponseWriter, r *http.Request) {
	var body llmsConfig
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.LLMsText == nil {
		writeError(w, http.StatusBadRequest, errors.New("llms_txt is required"))
		return
	}
	if err := s.texts.Set(r.Context(), *body.LLMsText); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("llms.txt updated", "length", len(*body.LLMsText))
	writeJSON(w, http.StatusOK, body)
}

// DeleteLLMsConfig handles the admin DELETE /admin/customize/llms.json request and
// answers with the now empty text.
func (s *Server) DeleteLLMsConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.texts.Clear(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	empty := ""
	writeJSON(w, http.StatusOK, llmsConfig{LLMsText: &empty})
}
