package api

import (
	"encoding/json"
	"net/http"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/JakeFAU/leaderboard-webhooks/internal/apperr"
	"github.com/JakeFAU/leaderboard-webhooks/internal/certificate"
	"github.com/JakeFAU/leaderboard-webhooks/internal/layout"
	"github.com/JakeFAU/leaderboard-webhooks/internal/linkpreview"
	"github.com/JakeFAU/leaderboard-webhooks/internal/logging"
)

type okResponse struct {
	Response string `json:"response"`
}

type announcementRequest struct {
	Blocks []json.RawMessage `json:"blocks"`
}

type certificateRequest struct {
	Members []certificate.Member `json:"members"`
}

type certificateResponse struct {
	Response string                    `json:"response"`
	Data     []certificate.Certificate `json:"data"`
}

type digestRequest struct {
	URLs []linkpreview.Item `json:"urls"`
}

type digestResponse struct {
	Result []slack.Block `json:"result"`
}

func (s *Server) postLeaderboard(w http.ResponseWriter, r *http.Request) {
	res, err := s.ops.PostLeaderboard(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logging.FromContext(r.Context(), s.logger).Info("leaderboard request done",
		zap.Int("entries", res.Entries),
		zap.String("certificates", string(res.Trigger)),
	)
	writeJSON(w, http.StatusOK, okResponse{Response: "ok"})
}

func (s *Server) announce(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	blocks, err := layout.ParseBlocks(req.Blocks)
	if err != nil {
		s.fail(w, r, apperr.BadRequest(err.Error()))
		return
	}
	if err := s.ops.Announce(r.Context(), blocks); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Response: "ok"})
}

func (s *Server) renderCertificates(w http.ResponseWriter, r *http.Request) {
	var req certificateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	certs, err := s.certs.Request(r.Context(), req.Members)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if certs == nil {
		certs = []certificate.Certificate{}
	}
	writeJSON(w, http.StatusOK, certificateResponse{Response: "ok", Data: certs})
}

func (s *Server) linkDigest(w http.ResponseWriter, r *http.Request) {
	var req digestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.URLs == nil {
		s.fail(w, r, apperr.BadRequest("urls must be an array"))
		return
	}
	blocks, err := s.ops.Digest(r.Context(), req.URLs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, digestResponse{Result: blocks})
}

// fail logs err with its cause and writes the caller-safe form.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	logger := logging.FromContext(r.Context(), s.logger)
	if appErr.Kind == apperr.KindInternal {
		logger.Error("request failed", zap.Error(err))
	} else {
		logger.Warn("request rejected", zap.String("kind", appErr.Kind.String()), zap.String("message", appErr.Message))
	}
	writeAppError(w, appErr)
}
