package ports

import (
	"context"

	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
)

// MoodAnalyzer turns one snapshot into one analysis with a single remote call.
type MoodAnalyzer interface {
	Analyze(ctx context.Context, img domain.CapturedImage) (domain.AnalysisResult, error)
}

// AnalysisRequest is one queued analysis. Done is called exactly once.
type AnalysisRequest struct {
	Ctx        context.Context
	SessionID  string
	Generation uint64
	Image      domain.CapturedImage
	Done       func(result domain.AnalysisResult, err error)
}

// AnalysisQueue runs analyses off the caller's goroutine.
type AnalysisQueue interface {
	Submit(req AnalysisRequest) error
}
