package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fwojciec/pagesignal"
)

type signalsResponse struct {
	Results pagesignal.Report `json:"results"`
}

type generateResponse struct {
	OK      bool                      `json:"ok"`
	Input   *pagesignal.GenerateInput `json:"input"`
	Signals pagesignal.Report         `json:"signals"`
	Next    string                    `json:"next"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decode(w, r)
	if !ok {
		return
	}

	raw, ok := body["urls"].([]any)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "Missing urls.")
		return
	}
	urls := make([]string, 0, len(raw))
	for _, v := range raw {
		if u, ok := v.(string); ok {
			urls = append(urls, u)
		}
	}

	report, err := s.processor.Process(r.Context(), urls)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, signalsResponse{Results: report})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decode(w, r)
	if !ok {
		return
	}

	input, err := pagesignal.ParseGenerateRequest(body)
	if err != nil {
		if pagesignal.ErrorCode(err) == pagesignal.EINVALID {
			s.respondError(w, http.StatusBadRequest, pagesignal.ErrorMessage(err))
			return
		}
		s.serverError(w, r, err)
		return
	}

	report, err := s.processor.Process(r.Context(), input.Links)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, generateResponse{
		OK:      true,
		Input:   input,
		Signals: report,
		Next:    pagesignal.GenerateNext,
	})
}

// decode reads a JSON object from the request body, writing a 4xx response
// and returning false when it can't.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var body map[string]any
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxRequestBytes)).Decode(&body)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		s.respondError(w, http.StatusRequestEntityTooLarge, "Request body too large.")
		return nil, false
	case err != nil || body == nil:
		s.respondError(w, http.StatusBadRequest, "Invalid request body.")
		return nil, false
	}
	return body, true
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"err", err,
	)
	s.respond(w, http.StatusInternalServerError, errorResponse{Error: "Server error.", Details: err.Error()})
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respond(w, status, errorResponse{Error: message})
}

func (s *Server) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}
