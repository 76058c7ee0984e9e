package views

import (
	"fmt"
	"math"
	"strings"

	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
)

// Radar chart geometry in SVG user units.
const (
	RadarSize   = 300
	radarCenter = RadarSize / 2
	radarRadius = 105
	radarRings  = 4
)

// RadarAxis is one spoke of the chart.
type RadarAxis struct {
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	LabelX float64 `json:"labelX"`
	LabelY float64 `json:"labelY"`
}

// Radar is the five-axis vibe signature, ready to draw.
type Radar struct {
	Axes    []RadarAxis `json:"axes"`
	Polygon string      `json:"polygon"`
	Rings   []string    `json:"rings"`
}

// BuildRadar lays out metrics on five axes starting at twelve o'clock and
// running clockwise. Values are clamped to [0, 100].
func BuildRadar(m domain.VibeMetrics) Radar {
	c := m.Clamped()
	values := []struct {
		label string
		v     float64
	}{
		{"Energy", c.Energy},
		{"Valence", c.Valence},
		{"Dance", c.Danceability},
		{"Calm", c.Calmness},
		{"Intensity", c.Intensity},
	}

	r := Radar{Axes: make([]RadarAxis, 0, len(values))}
	points := make([]string, 0, len(values))
	for i, val := range values {
		x, y := radarPoint(i, len(values), val.v/domain.MaxScore*radarRadius)
		lx, ly := radarPoint(i, len(values), radarRadius+18)
		r.Axes = append(r.Axes, RadarAxis{Label: val.label, Value: val.v, X: x, Y: y, LabelX: lx, LabelY: ly})
		points = append(points, fmt.Sprintf("%.1f,%.1f", x, y))
	}
	r.Polygon = strings.Join(points, " ")

	for ring := 1; ring <= radarRings; ring++ {
		radius := float64(ring) / radarRings * radarRadius
		ringPts := make([]string, 0, len(values))
		for i := range values {
			x, y := radarPoint(i, len(values), radius)
			ringPts = append(ringPts, fmt.Sprintf("%.1f,%.1f", x, y))
		}
		r.Rings = append(r.Rings, strings.Join(ringPts, " "))
	}
	return r
}

func radarPoint(i, n int, radius float64) (float64, float64) {
	theta := math.Pi/2 - 2*math.Pi*float64(i)/float64(n)
	x := radarCenter + radius*math.Cos(theta)
	y := radarCenter - radius*math.Sin(theta)
	return round1(x), round1(y)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
