package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/vibecheck/internal/adapters/camera"
	"github.com/ewilliams-labs/vibecheck/internal/adapters/eventbus"
	"github.com/ewilliams-labs/vibecheck/internal/adapters/memory"
	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
	"github.com/ewilliams-labs/vibecheck/internal/core/ports"
	"github.com/ewilliams-labs/vibecheck/internal/core/services"
	"github.com/ewilliams-labs/vibecheck/internal/views"
)

type testEnv struct {
	h       *Handler
	queue   *mockQueue
	artwork *mockArtwork
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewSessionStore(time.Hour, time.Hour, nil)
	t.Cleanup(store.Close)
	bus := eventbus.New(8, nil)
	q := &mockQueue{}
	art := &mockArtwork{}
	mgr := services.NewManager(services.ManagerConfig{
		Store:     store,
		Queue:     q,
		Notifier:  bus,
		NewCamera: func() ports.RemoteCamera { return camera.NewFeed() },
	})
	h := NewHandler(Config{Sessions: mgr, Events: bus, Artwork: art, MaxFrameBytes: 1 << 20})
	return &testEnv{h: h, queue: q, artwork: art}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/sessions", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p views.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.NotEmpty(t, p.SessionID)
	assert.Equal(t, "/sessions/"+p.SessionID, rec.Header().Get("Location"))
	return p.SessionID
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) views.Page {
	t.Helper()
	var p views.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p), rec.Body.String())
	return p
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

// --- Tests ---

func TestHandler_HealthCheck(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHandler_CreateSession(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	p := decodePage(t, env.do(t, http.MethodGet, "/sessions/"+id, nil, ""))
	assert.Equal(t, views.KindCamera, p.Kind)
	assert.Equal(t, domain.PhaseIdle, p.Phase)
	require.NotNil(t, p.Camera)
	assert.False(t, p.Camera.CanCapture, "no frame has arrived yet")
}

func TestHandler_Home(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Regexp(t, `^/sessions/[0-9a-f-]{36}/view$`, rec.Header().Get("Location"))
}

func TestHandler_UnknownSession(t *testing.T) {
	env := newTestEnv(t)
	paths := []string{
		"/sessions/not-a-uuid",
		"/sessions/8f14e45f-ceea-467a-9af4-4f5b8c0c1a11",
		"/sessions/8f14e45f-ceea-467a-9af4-4f5b8c0c1a11/image",
	}
	for _, p := range paths {
		rec := env.do(t, http.MethodGet, p, nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, p)
		assert.Equal(t, string(domain.KindNotFound), decodeError(t, rec).Code, p)
	}
}

func TestHandler_CaptureBeforeCameraReady(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/sessions/"+id+"/capture", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(domain.KindNotReady), decodeError(t, rec).Code)
	assert.Zero(t, env.queue.len(), "nothing may reach the analyzer")
}

func TestHandler_PushFrame(t *testing.T) {
	tests := []struct {
		name           string
		body           []byte
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Accepted: png frame",
			body:           pngFrame(t, 64, 48),
			expectedStatus: http.StatusAccepted,
			expectedBody:   `"ready":true`,
		},
		{
			name:           "Unprocessable: not an image",
			body:           []byte("hello"),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   string(domain.KindInvalidImage),
		},
		{
			name:           "Too Large: exceeds frame limit",
			body:           bytes.Repeat([]byte{0xFF}, 2<<20),
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedBody:   "frame exceeds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			id := env.createSession(t)
			rec := env.do(t, http.MethodPost, "/sessions/"+id+"/frames", tt.body, "image/png")
			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
		})
	}
}

func TestHandler_CaptureToResults(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	base := "/sessions/" + id

	require.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, base+"/frames", pngFrame(t, 64, 48), "image/png").Code)

	rec := env.do(t, http.MethodPost, base+"/capture", nil, "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	p := decodePage(t, rec)
	assert.Equal(t, views.KindAnalyzing, p.Kind)
	require.Equal(t, 1, env.queue.len())

	// A second capture while analysing is refused and queues nothing.
	rec = env.do(t, http.MethodPost, base+"/capture", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, env.queue.len())

	img := env.do(t, http.MethodGet, base+"/image", nil, "")
	assert.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, domain.MIMETypeJPEG, img.Header().Get("Content-Type"))
	assert.Greater(t, img.Body.Len(), 1024)

	env.queue.complete(joyful(18), nil)

	p = decodePage(t, env.do(t, http.MethodGet, base, nil, ""))
	require.Equal(t, views.KindResults, p.Kind)
	assert.Equal(t, "Joyful", p.Results.Emotion)
	assert.Equal(t, 92, p.Results.Confidence)
	assert.Len(t, p.Results.Songs, 18)
	assert.True(t, p.ShowScanAgain)

	html := env.do(t, http.MethodGet, base+"/view", nil, "")
	assert.Equal(t, http.StatusOK, html.Code)
	assert.Contains(t, html.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, html.Body.String(), "Recommended Tracks")

	rec = env.do(t, http.MethodPost, base+"/reset", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	p = decodePage(t, rec)
	assert.Equal(t, views.KindCamera, p.Kind)
	assert.Nil(t, p.Results)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, base+"/image", nil, "").Code)
}

func TestHandler_AnalysisFailureShowsFixedMessage(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	base := "/sessions/" + id

	env.do(t, http.MethodPost, base+"/frames", pngFrame(t, 64, 48), "image/png")
	require.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, base+"/capture", nil, "").Code)
	env.queue.complete(domain.AnalysisResult{}, fmt.Errorf("gemini: status 500: %w", domain.ErrNetwork))

	p := decodePage(t, env.do(t, http.MethodGet, base, nil, ""))
	require.Equal(t, views.KindError, p.Kind)
	assert.Equal(t, domain.AnalysisFailedMessage, p.Error.Message)
	assert.NotContains(t, p.Error.Message, "500")
}

func TestHandler_SelectSong(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		contentType    string
		expectedStatus int
		expectedBody   string
	}{
		{name: "Success: highlights song", body: `{"index":2}`, contentType: "application/json", expectedStatus: http.StatusOK, expectedBody: `"active":true`},
		{name: "Unprocessable: index out of range", body: `{"index":40}`, contentType: "application/json", expectedStatus: http.StatusUnprocessableEntity, expectedBody: string(domain.KindNoSelection)},
		{name: "Bad Request: missing index", body: `{}`, contentType: "application/json", expectedStatus: http.StatusBadRequest, expectedBody: "index is required"},
		{name: "Bad Request: malformed json", body: `{invalid-json`, contentType: "application/json", expectedStatus: http.StatusBadRequest, expectedBody: "Invalid request body"},
		{name: "Unsupported: wrong content type", body: `{"index":2}`, contentType: "text/plain", expectedStatus: http.StatusUnsupportedMediaType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			id := env.createSession(t)
			base := "/sessions/" + id
			env.do(t, http.MethodPost, base+"/frames", pngFrame(t, 64, 48), "image/png")
			env.do(t, http.MethodPost, base+"/capture", nil, "")
			env.queue.complete(joyful(18), nil)

			rec := env.do(t, http.MethodPost, base+"/select", []byte(tc.body), tc.contentType)
			assert.Equal(t, tc.expectedStatus, rec.Code, rec.Body.String())
			if tc.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tc.expectedBody)
			}
		})
	}
}

func TestHandler_SelectSongPlaysIt(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	base := "/sessions/" + id
	env.do(t, http.MethodPost, base+"/frames", pngFrame(t, 64, 48), "image/png")
	env.do(t, http.MethodPost, base+"/capture", nil, "")
	env.queue.complete(joyful(18), nil)

	p := decodePage(t, env.do(t, http.MethodPost, base+"/select", []byte(`{"index":2}`), "application/json"))
	require.NotNil(t, p.Results.Player)
	assert.Equal(t, "Song 3", p.Results.Player.Title)
	assert.Equal(t, 2, p.Selected)
	assert.True(t, p.Results.Songs[2].Active)
	assert.False(t, p.Results.Songs[0].Active)
}

func TestHandler_Artwork(t *testing.T) {
	tests := []struct {
		name         string
		artURL       string
		artErr       error
		index        string
		wantStatus   int
		wantLocation string
	}{
		{name: "redirects to album art", artURL: "https://i.scdn.co/image/big", index: "0", wantStatus: http.StatusFound, wantLocation: "https://i.scdn.co/image/big"},
		{name: "falls back to thumbnail", artErr: fmt.Errorf("spotify adapter: %w", domain.ErrNotFound), index: "1", wantStatus: http.StatusFound, wantLocation: "https://tse2.mm.bing.net/th?q=Song%202%20Artist%20album%20cover&w=400&h=400&c=7&rs=1&p=0"},
		{name: "falls back on outage", artErr: errors.New("boom"), index: "0", wantStatus: http.StatusFound, wantLocation: "https://tse2.mm.bing.net/th?q=Song%201%20Artist%20album%20cover&w=400&h=400&c=7&rs=1&p=0"},
		{name: "unknown index", index: "99", wantStatus: http.StatusNotFound},
		{name: "bad index", index: "x", wantStatus: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.artwork.url, env.artwork.err = tc.artURL, tc.artErr
			id := env.createSession(t)
			base := "/sessions/" + id
			env.do(t, http.MethodPost, base+"/frames", pngFrame(t, 64, 48), "image/png")
			env.do(t, http.MethodPost, base+"/capture", nil, "")
			env.queue.complete(joyful(18), nil)

			rec := env.do(t, http.MethodGet, base+"/playlist/"+tc.index+"/artwork", nil, "")
			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantLocation != "" {
				assert.Equal(t, tc.wantLocation, rec.Header().Get("Location"))
			}
		})
	}
}

func TestHandler_DeleteSession(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/sessions/"+id, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/sessions/"+id, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/sessions/"+id, nil, "").Code)
}

func TestHandler_CameraSocket(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.h)
	defer srv.Close()
	id := env.createSession(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + id + "/camera"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readSocket(t, conn)
	assert.Equal(t, msgState, first.Type)
	assert.Equal(t, domain.PhaseIdle, first.State.Phase)
	second := readSocket(t, conn)
	require.Equal(t, msgCamera, second.Type)
	assert.False(t, second.Camera.Ready)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, pngFrame(t, 64, 48)))
	ready := readSocket(t, conn)
	require.Equal(t, msgCamera, ready.Type)
	assert.True(t, ready.Camera.Ready)

	resp, err := http.Post(srv.URL+"/sessions/"+id+"/capture", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	waitForPhase(t, conn, domain.PhaseAnalyzing)
	env.queue.complete(joyful(16), nil)
	waitForPhase(t, conn, domain.PhaseResults)
}

func TestHandler_CameraSocketReportsDenial(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.h)
	defer srv.Close()
	id := env.createSession(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + id + "/camera"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	readSocket(t, conn)
	readSocket(t, conn)

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: msgError, Code: "NotAllowedError", Message: "Permission denied"}))
	msg := readSocket(t, conn)
	require.Equal(t, msgCamera, msg.Type)
	assert.False(t, msg.Camera.Ready)
	assert.Equal(t, string(domain.KindPermissionDenied), msg.Camera.Kind)
	assert.NotEmpty(t, msg.Camera.Message)

	rec := env.do(t, http.MethodPost, "/sessions/"+id+"/capture", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// --- Helpers ---

func readSocket(t *testing.T, conn *websocket.Conn) outboundMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg outboundMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func waitForPhase(t *testing.T, conn *websocket.Conn, phase domain.Phase) {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg := readSocket(t, conn)
		if msg.Type == msgState && msg.State.Phase == phase {
			return
		}
	}
	t.Fatalf("never saw phase %s", phase)
}

func pngFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	seed := uint32(2463534242)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			seed ^= seed << 13
			seed ^= seed >> 17
			seed ^= seed << 5
			img.SetRGBA(x, y, color.RGBA{R: uint8(seed), G: uint8(seed >> 8), B: uint8(seed >> 16), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func joyful(songs int) domain.AnalysisResult {
	playlist := make([]domain.Song, 0, songs)
	for i := 0; i < songs; i++ {
		playlist = append(playlist, domain.Song{Title: fmt.Sprintf("Song %d", i+1), Artist: "Artist", Genre: "Pop", Reason: "Bright."})
	}
	return domain.AnalysisResult{
		DetectedEmotion:  "Joyful",
		Emoji:            "😄",
		Confidence:       92,
		ShortDescription: "Radiant energy.",
		VibeMetrics:      domain.VibeMetrics{Energy: 80, Valence: 90, Danceability: 75, Calmness: 40, Intensity: 60},
		Playlist:         playlist,
	}
}

// --- Mocks ---

type mockQueue struct {
	mu   sync.Mutex
	reqs []ports.AnalysisRequest
}

func (m *mockQueue) Submit(req ports.AnalysisRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	return nil
}

func (m *mockQueue) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reqs)
}

// complete finishes the most recent request.
func (m *mockQueue) complete(result domain.AnalysisResult, err error) {
	m.mu.Lock()
	req := m.reqs[len(m.reqs)-1]
	m.mu.Unlock()
	req.Done(result, err)
}

type mockArtwork struct {
	url string
	err error
}

func (m *mockArtwork) FindArtwork(ctx context.Context, song domain.Song) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.url, nil
}
