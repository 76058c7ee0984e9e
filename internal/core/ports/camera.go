package ports

import (
	"context"
	"image"
)

// Constraints are the preferences sent to the camera device.
type Constraints struct {
	FacingMode  string `json:"facingMode"`
	IdealWidth  int    `json:"idealWidth"`
	IdealHeight int    `json:"idealHeight"`
}

// DefaultConstraints asks for the front camera at 1280x720.
func DefaultConstraints() Constraints {
	return Constraints{FacingMode: "user", IdealWidth: 1280, IdealHeight: 720}
}

// Camera opens a live video stream.
type Camera interface {
	Open(ctx context.Context, c Constraints) (VideoStream, error)
}

// VideoStream exposes the most recent frame of an open stream.
// Frame returns (nil, nil) until the first frame arrives and a non-nil
// error once the device has failed.
type VideoStream interface {
	Frame() (image.Image, error)
	Stop()
}

// FrameSink receives frames and failures from a remote camera.
type FrameSink interface {
	PushFrame(frame image.Image) error
	ReportFailure(err error)
}

// RemoteCamera is a camera whose frames are delivered from elsewhere.
type RemoteCamera interface {
	Camera
	FrameSink
}
