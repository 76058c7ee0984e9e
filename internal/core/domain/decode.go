package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type wireMetrics struct {
	Energy       *float64 `json:"energy"`
	Valence      *float64 `json:"valence"`
	Danceability *float64 `json:"danceability"`
	Calmness     *float64 `json:"calmness"`
	Intensity    *float64 `json:"intensity"`
}

type wireSong struct {
	Title  *string `json:"title"`
	Artist *string `json:"artist"`
	Genre  *string `json:"genre"`
	Reason *string `json:"reason"`
}

type wireAnalysis struct {
	DetectedEmotion  *string      `json:"detectedEmotion"`
	Emoji            *string      `json:"emoji"`
	Confidence       *float64     `json:"confidence"`
	ShortDescription *string      `json:"shortDescription"`
	VibeMetrics      *wireMetrics `json:"vibeMetrics"`
	Playlist         []*wireSong  `json:"playlist"`
}

// DecodeAnalysis parses an analyzer reply into an AnalysisResult, failing
// closed with ErrMalformedResponse on any deviation from the expected shape.
// Playlists longer than MaxPlaylistLen keep their first MaxPlaylistLen entries.
func DecodeAnalysis(raw []byte) (AnalysisResult, error) {
	body := trimCodeFence(raw)
	if len(body) == 0 {
		return AnalysisResult{}, ErrEmptyResponse
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	var w wireAnalysis
	if err := dec.Decode(&w); err != nil {
		return AnalysisResult{}, malformed("decode: %v", err)
	}
	if dec.More() {
		return AnalysisResult{}, malformed("trailing data after JSON object")
	}

	switch {
	case w.DetectedEmotion == nil:
		return AnalysisResult{}, malformed("missing detectedEmotion")
	case w.Emoji == nil:
		return AnalysisResult{}, malformed("missing emoji")
	case w.Confidence == nil:
		return AnalysisResult{}, malformed("missing confidence")
	case w.ShortDescription == nil:
		return AnalysisResult{}, malformed("missing shortDescription")
	case w.VibeMetrics == nil:
		return AnalysisResult{}, malformed("missing vibeMetrics")
	case w.Playlist == nil:
		return AnalysisResult{}, malformed("missing playlist")
	}

	if strings.TrimSpace(*w.DetectedEmotion) == "" {
		return AnalysisResult{}, malformed("empty detectedEmotion")
	}
	if err := checkScore("confidence", *w.Confidence); err != nil {
		return AnalysisResult{}, err
	}
	metrics, err := w.VibeMetrics.toDomain()
	if err != nil {
		return AnalysisResult{}, err
	}

	if len(w.Playlist) < MinPlaylistLen {
		return AnalysisResult{}, malformed("playlist has %d songs, want at least %d", len(w.Playlist), MinPlaylistLen)
	}
	entries := w.Playlist
	if len(entries) > MaxPlaylistLen {
		entries = entries[:MaxPlaylistLen]
	}
	playlist := make([]Song, 0, len(entries))
	for i, s := range entries {
		song, err := s.toDomain(i)
		if err != nil {
			return AnalysisResult{}, err
		}
		playlist = append(playlist, song)
	}

	return AnalysisResult{
		DetectedEmotion:  strings.TrimSpace(*w.DetectedEmotion),
		Emoji:            strings.TrimSpace(*w.Emoji),
		Confidence:       *w.Confidence,
		ShortDescription: strings.TrimSpace(*w.ShortDescription),
		VibeMetrics:      metrics,
		Playlist:         playlist,
	}, nil
}

func (m *wireMetrics) toDomain() (VibeMetrics, error) {
	fields := []struct {
		name string
		val  *float64
	}{
		{"energy", m.Energy},
		{"valence", m.Valence},
		{"danceability", m.Danceability},
		{"calmness", m.Calmness},
		{"intensity", m.Intensity},
	}
	for _, f := range fields {
		if f.val == nil {
			return VibeMetrics{}, malformed("missing vibeMetrics.%s", f.name)
		}
		if err := checkScore("vibeMetrics."+f.name, *f.val); err != nil {
			return VibeMetrics{}, err
		}
	}
	return VibeMetrics{
		Energy:       *m.Energy,
		Valence:      *m.Valence,
		Danceability: *m.Danceability,
		Calmness:     *m.Calmness,
		Intensity:    *m.Intensity,
	}, nil
}

func (s *wireSong) toDomain(i int) (Song, error) {
	if s == nil {
		return Song{}, malformed("playlist[%d] is null", i)
	}
	if s.Title == nil || s.Artist == nil || s.Genre == nil || s.Reason == nil {
		return Song{}, malformed("playlist[%d] is missing a required field", i)
	}
	title := strings.TrimSpace(*s.Title)
	artist := strings.TrimSpace(*s.Artist)
	if title == "" || artist == "" {
		return Song{}, malformed("playlist[%d] has an empty title or artist", i)
	}
	return Song{
		Title:  title,
		Artist: artist,
		Genre:  strings.TrimSpace(*s.Genre),
		Reason: strings.TrimSpace(*s.Reason),
	}, nil
}

func checkScore(field string, v float64) error {
	if v != v || v < MinScore || v > MaxScore {
		return malformed("%s %v outside [%v, %v]", field, v, MinScore, MaxScore)
	}
	return nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrMalformedResponse)
}

// trimCodeFence drops a surrounding ```json fence some models add.
func trimCodeFence(raw []byte) []byte {
	body := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(body, []byte("```")) {
		return body
	}
	body = bytes.TrimPrefix(body, []byte("```"))
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	body = bytes.TrimSuffix(bytes.TrimSpace(body), []byte("```"))
	return bytes.TrimSpace(body)
}
