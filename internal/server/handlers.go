package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// ReplySuggester drafts a reply for raw message text
type ReplySuggester interface {
	SuggestReply(ctx context.Context, text string) (string, error)
}

// SyncTrigger requests an out-of-schedule sync pass
type SyncTrigger interface {
	Trigger() bool
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type suggestRequest struct {
	EmailText string `json:"emailText"`
}

type suggestResponse struct {
	Reply string `json:"reply"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Indexed int64  `json:"indexed"`
	Error   string `json:"error,omitempty"`
}

const maxRequestBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "Email Onebox Backend Running")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.index.Count(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Indexed: n})
}

// searchQuery builds a query from the non-empty filter parameters only
func searchQuery(r *http.Request) core.SearchQuery {
	params := r.URL.Query()
	var q core.SearchQuery
	if v := strings.TrimSpace(params.Get("label")); v != "" {
		q = q.Must(core.FieldLabel, v)
	}
	if v := strings.TrimSpace(params.Get("folder")); v != "" {
		q = q.Must(core.FieldFolder, v)
	}
	if v := strings.TrimSpace(params.Get("account")); v != "" {
		q = q.Phrase(core.FieldAccount, v)
	}
	return q
}

func (s *Server) handleListEmails(w http.ResponseWriter, r *http.Request) {
	q := searchQuery(r)
	q.Size = s.pageSize

	msgs, err := s.index.Search(r.Context(), q)
	if err != nil {
		s.logger.Error("Failed to fetch emails", zap.String("op", "search"), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to fetch emails",
			Details: err.Error(),
		})
		return
	}
	if msgs == nil {
		msgs = []core.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleSuggestReply(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req)
	if err != nil || strings.TrimSpace(req.EmailText) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "emailText is required"})
		return
	}

	reply, err := s.replies.SuggestReply(r.Context(), req.EmailText)
	if err != nil {
		level := s.logger.Error
		if errors.Is(err, core.ErrNoMatchFound) {
			level = s.logger.Warn
		}
		level("Failed to generate reply", zap.String("op", "suggest_reply"), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to generate reply",
			Details: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, suggestResponse{Reply: reply})
}

func (s *Server) handleSync(w http.ResponseWriter, _ *http.Request) {
	if s.sync == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Sync is not running"})
		return
	}
	status := "queued"
	if !s.sync.Trigger() {
		status = "already queued"
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": status})
}

func (s *Server) handleClearEmails(w http.ResponseWriter, r *http.Request) {
	n, err := s.index.ClearAll(r.Context())
	if err != nil {
		s.logger.Error("Failed to clear emails", zap.String("op", "clear_all"), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to clear emails",
			Details: err.Error(),
		})
		return
	}
	s.logger.Warn("Index cleared", zap.Int64("deleted", n))
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
