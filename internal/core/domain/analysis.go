package domain

// Score bounds shared by confidence and every vibe metric.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Playlist length accepted from the analyzer.
const (
	MinPlaylistLen = 15
	MaxPlaylistLen = 20
)

// VibeMetrics characterises a mood on five 0-100 axes.
type VibeMetrics struct {
	Energy       float64 `json:"energy"`
	Valence      float64 `json:"valence"`
	Danceability float64 `json:"danceability"`
	Calmness     float64 `json:"calmness"`
	Intensity    float64 `json:"intensity"`
}

// Clamped returns a copy with every axis forced into [MinScore, MaxScore].
func (m VibeMetrics) Clamped() VibeMetrics {
	return VibeMetrics{
		Energy:       ClampScore(m.Energy),
		Valence:      ClampScore(m.Valence),
		Danceability: ClampScore(m.Danceability),
		Calmness:     ClampScore(m.Calmness),
		Intensity:    ClampScore(m.Intensity),
	}
}

// Song is one playlist entry.
type Song struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Genre  string `json:"genre"`
	Reason string `json:"reason"`
}

// AnalysisResult is the decoded answer of one analyzer call. The playlist
// order is the service's ranking and must be kept for display.
type AnalysisResult struct {
	DetectedEmotion  string      `json:"detectedEmotion"`
	Emoji            string      `json:"emoji"`
	Confidence       float64     `json:"confidence"`
	ShortDescription string      `json:"shortDescription"`
	VibeMetrics      VibeMetrics `json:"vibeMetrics"`
	Playlist         []Song      `json:"playlist"`
}

// Clone copies the result so callers cannot alias the playlist.
func (r AnalysisResult) Clone() AnalysisResult {
	out := r
	out.Playlist = append([]Song(nil), r.Playlist...)
	return out
}

// ClampScore forces v into [MinScore, MaxScore].
func ClampScore(v float64) float64 {
	if v != v || v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
