package notify

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// RejectedItem is one declined entry with the tracker's reason.
type RejectedItem struct {
	Item   string `json:"item"`
	Reason string `json:"reason"`
}

// StatusUpdate is the tracker's callback payload. Consumed once, never stored.
type StatusUpdate struct {
	Secret      string         `json:"secret"`
	DiscordUser string         `json:"discord_user"`
	Approved    []string       `json:"approved"`
	Rejected    []RejectedItem `json:"rejected"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
	Bot    string `json:"bot"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, healthResponse{Status: "online", Bot: s.cfg.BotName})
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var upd StatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.metrics.NotifyRequestsTotal.WithLabelValues("bad_request").Inc()
		s.sendJSON(w, http.StatusBadRequest, statusResponse{Error: "invalid request body"})
		return
	}

	// Auth gate comes first: a mismatched secret must have no side effects.
	if subtle.ConstantTimeCompare([]byte(upd.Secret), []byte(s.cfg.Secret)) != 1 {
		s.log.Warn().Str("remote_addr", r.RemoteAddr).Msg("notify rejected: bad secret")
		s.metrics.NotifyRequestsTotal.WithLabelValues("unauthorized").Inc()
		s.sendJSON(w, http.StatusUnauthorized, statusResponse{Error: "unauthorized"})
		return
	}

	member, ok := s.resolver.Resolve(r.Context(), upd.DiscordUser)
	if !ok {
		// Dropped, not retried, not queued. The caller still sees success;
		// the tracker has no way to act on an unresolvable handle anyway.
		s.log.Warn().Str("user", upd.DiscordUser).Msg("notify dropped: member not found")
		s.metrics.NotifyRequestsTotal.WithLabelValues("unresolved").Inc()
		s.sendJSON(w, http.StatusOK, statusResponse{Success: true})
		return
	}

	text := FormatStatus(upd.Approved, upd.Rejected, s.cfg.SheetURL)
	s.deliverer.DeliverDM(member.ID, text)

	s.log.Info().
		Str("user", upd.DiscordUser).
		Int("approved", len(upd.Approved)).
		Int("rejected", len(upd.Rejected)).
		Msg("status update queued for delivery")
	s.metrics.NotifyRequestsTotal.WithLabelValues("ok").Inc()
	s.sendJSON(w, http.StatusOK, statusResponse{Success: true})
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}
