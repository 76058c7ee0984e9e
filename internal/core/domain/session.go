package domain

// Phase names the active variant of a session.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseCapturing Phase = "capturing"
	PhaseAnalyzing Phase = "analyzing"
	PhaseResults   Phase = "results"
	PhaseError     Phase = "error"
)

// NoSelection marks that no playlist entry is highlighted.
const NoSelection = -1

// AnalysisFailedMessage is the only failure text shown to users.
const AnalysisFailedMessage = "Failed to analyze the vibe. The spirits are quiet today."

// SessionState is a snapshot of one session. Which fields are set depends on
// Phase:
//
//	idle, capturing: none
//	analyzing:       Image
//	results:         Image, Result (non-empty playlist), optionally Selected
//	error:           Error
type SessionState struct {
	Phase      Phase           `json:"phase"`
	Image      *CapturedImage  `json:"image,omitempty"`
	Result     *AnalysisResult `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Selected   int             `json:"selected"`
	Generation uint64          `json:"generation"`
}

// IdleState is the zero session.
func IdleState(generation uint64) SessionState {
	return SessionState{Phase: PhaseIdle, Selected: NoSelection, Generation: generation}
}

// SelectedSong returns the highlighted entry, if any.
func (s SessionState) SelectedSong() (Song, bool) {
	if s.Phase != PhaseResults || s.Result == nil {
		return Song{}, false
	}
	if s.Selected < 0 || s.Selected >= len(s.Result.Playlist) {
		return Song{}, false
	}
	return s.Result.Playlist[s.Selected], true
}

// Valid reports whether the snapshot honours the per-phase field rules.
func (s SessionState) Valid() bool {
	switch s.Phase {
	case PhaseIdle, PhaseCapturing:
		return s.Image == nil && s.Result == nil && s.Error == "" && s.Selected == NoSelection
	case PhaseAnalyzing:
		return s.Image != nil && s.Result == nil && s.Error == ""
	case PhaseResults:
		return s.Image != nil && s.Result != nil && len(s.Result.Playlist) > 0 && s.Error == ""
	case PhaseError:
		return s.Image == nil && s.Result == nil && s.Error != ""
	default:
		return false
	}
}
