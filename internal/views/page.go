// Package views turns a session snapshot into what the browser shows. Build
// is a pure function of its inputs; Render draws the result as HTML.
package views

import (
	"fmt"
	"math"

	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
)

// Kind selects which screen is shown.
type Kind string

const (
	KindCamera    Kind = "camera"
	KindAnalyzing Kind = "analyzing"
	KindResults   Kind = "results"
	KindError     Kind = "error"
)

// CameraInput is the capture source status the page needs.
type CameraInput struct {
	Ready   bool
	Message string
}

// CameraView is the capture screen.
type CameraView struct {
	Headline    string `json:"headline"`
	Tagline     string `json:"tagline"`
	Ready       bool   `json:"ready"`
	Busy        bool   `json:"busy"`
	CanCapture  bool   `json:"canCapture"`
	ButtonLabel string `json:"buttonLabel"`
	Error       string `json:"error,omitempty"`
}

// AnalyzingView is shown while the analysis runs.
type AnalyzingView struct {
	ImageURL string `json:"imageUrl"`
	Headline string `json:"headline"`
	Subline  string `json:"subline"`
}

// ErrorView is the failure screen.
type ErrorView struct {
	Glyph   string `json:"glyph"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// SongCard is one playlist entry.
type SongCard struct {
	Index        int    `json:"index"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Genre        string `json:"genre"`
	Reason       string `json:"reason"`
	SpotifyURL   string `json:"spotifyUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	ArtworkURL   string `json:"artworkUrl"`
	Placeholder  string `json:"placeholder"`
	Active       bool   `json:"active"`
	EntranceMs   int    `json:"entranceMs"`
}

// Player embeds playback of the highlighted song.
type Player struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	EmbedURL string `json:"embedUrl"`
}

// ResultsView is the dashboard.
type ResultsView struct {
	ImageURL    string     `json:"imageUrl"`
	Emotion     string     `json:"emotion"`
	Emoji       string     `json:"emoji"`
	Confidence  int        `json:"confidence"`
	Description string     `json:"description"`
	Radar       Radar      `json:"radar"`
	Songs       []SongCard `json:"songs"`
	Player      *Player    `json:"player,omitempty"`
}

// Page is the complete view model. Exactly one of Camera, Analyzing,
// Results and Error is set, matching Kind.
type Page struct {
	SessionID     string         `json:"sessionId"`
	Kind          Kind           `json:"kind"`
	Phase         domain.Phase   `json:"phase"`
	Generation    uint64         `json:"generation"`
	Selected      int            `json:"selected"`
	ShowScanAgain bool           `json:"showScanAgain"`
	Camera        *CameraView    `json:"camera,omitempty"`
	Analyzing     *AnalyzingView `json:"analyzing,omitempty"`
	Results       *ResultsView   `json:"results,omitempty"`
	Error         *ErrorView     `json:"error,omitempty"`
}

// Options carries request-scoped details that are not session state.
type Options struct {
	// Origin is the page origin for embedded players.
	Origin string
}

// Build derives the page for a session snapshot.
func Build(sessionID string, st domain.SessionState, cam CameraInput, opts Options) Page {
	p := Page{
		SessionID:  sessionID,
		Phase:      st.Phase,
		Generation: st.Generation,
		Selected:   st.Selected,
	}

	switch st.Phase {
	case domain.PhaseAnalyzing:
		p.Kind = KindAnalyzing
		p.Analyzing = &AnalyzingView{
			ImageURL: imagePath(sessionID, st.Generation),
			Headline: "Reading your energy...",
			Subline:  "Consulting the musical oracle",
		}
	case domain.PhaseResults:
		if st.Result == nil {
			p.Kind = KindError
			p.Error = errorView(domain.AnalysisFailedMessage)
			break
		}
		p.Kind = KindResults
		p.ShowScanAgain = true
		p.Results = buildResults(sessionID, st, opts)
	case domain.PhaseError:
		p.Kind = KindError
		msg := st.Error
		if msg == "" {
			msg = domain.AnalysisFailedMessage
		}
		p.Error = errorView(msg)
	default:
		p.Kind = KindCamera
		p.Camera = buildCamera(st.Phase, cam)
	}
	return p
}

func buildCamera(phase domain.Phase, cam CameraInput) *CameraView {
	v := &CameraView{
		Headline: "What's your soundtrack?",
		Tagline:  "Let our AI analyze your expression to curate the perfect playlist for your current mood.",
		Ready:    cam.Ready && cam.Message == "",
		Busy:     phase == domain.PhaseCapturing,
		Error:    cam.Message,
	}
	v.CanCapture = v.Ready && !v.Busy
	switch {
	case v.Busy:
		v.ButtonLabel = "Capturing..."
	case v.Ready:
		v.ButtonLabel = "Capture Vibe"
	default:
		v.ButtonLabel = "Initializing..."
	}
	return v
}

func buildResults(sessionID string, st domain.SessionState, opts Options) *ResultsView {
	res := st.Result
	v := &ResultsView{
		ImageURL:    imagePath(sessionID, st.Generation),
		Emotion:     res.DetectedEmotion,
		Emoji:       res.Emoji,
		Confidence:  int(math.Round(domain.ClampScore(res.Confidence))),
		Description: res.ShortDescription,
		Radar:       BuildRadar(res.VibeMetrics),
		Songs:       make([]SongCard, 0, len(res.Playlist)),
	}
	for i, song := range res.Playlist {
		v.Songs = append(v.Songs, SongCard{
			Index:        i,
			Title:        song.Title,
			Artist:       song.Artist,
			Genre:        song.Genre,
			Reason:       song.Reason,
			SpotifyURL:   SpotifySearchURL(song),
			ThumbnailURL: ThumbnailURL(song),
			ArtworkURL:   fmt.Sprintf("/sessions/%s/playlist/%d/artwork", sessionID, i),
			Placeholder:  PlaceholderGlyph,
			Active:       i == st.Selected,
			EntranceMs:   100 + i*50,
		})
	}
	if song, ok := st.SelectedSong(); ok {
		v.Player = &Player{Title: song.Title, Artist: song.Artist, EmbedURL: EmbedURL(song, opts.Origin)}
	}
	return v
}

func errorView(msg string) *ErrorView {
	return &ErrorView{Glyph: "👾", Title: "System Glitch", Message: msg, Action: "Try Again"}
}

// imagePath carries the generation so browsers do not show a stale snapshot.
func imagePath(sessionID string, gen uint64) string {
	return fmt.Sprintf("/sessions/%s/image?g=%d", sessionID, gen)
}
