package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/vibecheck/internal/capture"
	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
	"github.com/ewilliams-labs/vibecheck/internal/core/services"
	"github.com/ewilliams-labs/vibecheck/internal/views"
)

const artworkTimeout = 5 * time.Second

type selectSongRequest struct {
	Index *int `json:"index"`
}

// Home handles GET / by starting a session and sending the browser to it.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Create(r.Context())
	if err != nil {
		h.logger.Error("create session", zap.Error(err))
		writeDomainError(w, err)
		return
	}
	http.Redirect(w, r, "/sessions/"+s.ID+"/view", http.StatusSeeOther)
}

// CreateSession handles POST /sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Create(r.Context())
	if err != nil {
		h.logger.Error("create session", zap.Error(err))
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+s.ID)
	writeJSON(w, http.StatusCreated, h.page(r, s, s.State()))
}

// GetSession handles GET /sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.page(r, s, s.State()))
}

// ViewSession handles GET /sessions/{id}/view
func (h *Handler) ViewSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := views.Render(&buf, h.page(r, s, s.State())); err != nil {
		h.logger.Error("render view", zap.String("session", s.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// DeleteSession handles DELETE /sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PushFrame handles POST /sessions/{id}/frames. The body is an encoded
// image or a data URI.
func (h *Handler) PushFrame(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxFrameBytes))
	if err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("frame exceeds %d bytes", h.maxFrameBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	frame, err := capture.DecodeFrame(bytes.TrimSpace(body))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.PushFrame(frame); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.Camera())
}

// Capture handles POST /sessions/{id}/capture
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	st, err := s.Capture()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.page(r, s, st))
}

// Reset handles POST /sessions/{id}/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.page(r, s, s.Reset()))
}

// SelectSong handles POST /sessions/{id}/select
func (h *Handler) SelectSong(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req selectSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, "index is required")
		return
	}

	st, err := s.SelectSong(*req.Index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.page(r, s, st))
}

// Image handles GET /sessions/{id}/image
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	st := s.State()
	if st.Image == nil || st.Image.Size() == 0 {
		writeErrorWithCode(w, http.StatusNotFound, "no snapshot", string(domain.KindNotFound))
		return
	}
	mimeType := st.Image.MIMEType
	if mimeType == "" {
		mimeType = domain.MIMETypeJPEG
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(st.Image.Size()))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(st.Image.Data)
}

// Artwork handles GET /sessions/{id}/playlist/{index}/artwork. It redirects
// to album art when a lookup succeeds and to a search thumbnail otherwise.
func (h *Handler) Artwork(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be a number")
		return
	}
	st := s.State()
	if st.Result == nil || index < 0 || index >= len(st.Result.Playlist) {
		writeErrorWithCode(w, http.StatusNotFound, "no such song", string(domain.KindNotFound))
		return
	}
	song := st.Result.Playlist[index]

	target := views.ThumbnailURL(song)
	if h.artwork != nil {
		ctx, cancel := context.WithTimeout(r.Context(), artworkTimeout)
		defer cancel()
		art, err := h.artwork.FindArtwork(ctx, song)
		switch {
		case err == nil && art != "":
			target = art
		case errors.Is(err, domain.ErrNotFound):
			h.logger.Debug("no artwork match", zap.String("title", song.Title), zap.String("artist", song.Artist))
		case err != nil:
			h.logger.Warn("artwork lookup failed", zap.String("title", song.Title), zap.Error(err))
		}
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.Redirect(w, r, target, http.StatusFound)
}

// session resolves {id}, writing a 404 when it does not exist.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*services.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) page(r *http.Request, s *services.Session, st domain.SessionState) views.Page {
	cam := s.Camera()
	return views.Build(s.ID, st, views.CameraInput{Ready: cam.Ready, Message: cam.Message}, views.Options{Origin: origin(r)})
}

// origin is the page origin as seen by the browser.
func origin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
