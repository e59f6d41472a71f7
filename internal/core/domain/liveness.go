package domain

import "time"

// LivenessStatus is a custom type for the liveness session ENUM.
type LivenessStatus string

const (
	LivenessPending    LivenessStatus = "pending"
	LivenessProcessing LivenessStatus = "processing"
	LivenessPassed     LivenessStatus = "passed"
	LivenessFailed     LivenessStatus = "failed"
	LivenessError      LivenessStatus = "error"
)

const (
	// LivenessPassThreshold is the minimum analyzer score to pass.
	LivenessPassThreshold = 70.0

	// LivenessVideoRetention is how long the raw video survives after the
	// session reaches a terminal status. Analysis metadata is kept longer.
	LivenessVideoRetention = 24 * time.Hour

	// LivenessRecordRetention is how long the session record itself is kept.
	LivenessRecordRetention = 30 * 24 * time.Hour
)

// LivenessChecks are the analyzer's sub-signals.
type LivenessChecks struct {
	EyeMovement     bool `json:"eyeMovement"`
	HeadRotation    bool `json:"headRotation"`
	BlinkDetected   bool `json:"blinkDetected"`
	LipMovement     bool `json:"lipMovement"`
	DepthDetected   bool `json:"depthDetected"`
	ScreenDetection bool `json:"screenDetection"`
}

// LivenessCheck is one selfie-video liveness session.
// Invariant: Passed implies Status == LivenessPassed.
type LivenessCheck struct {
	ID            string
	UserID        string
	VideoRef      string // blob reference, cleared once the video is purged
	VideoHash     string // SHA-256 of the uploaded bytes, kept for audit
	Provider      string
	Score         float64
	FaceDetected  bool
	FaceQuality   float64
	Checks        LivenessChecks
	Passed        bool
	Status        LivenessStatus
	FailureReason string
	CreatedAt     time.Time
	ProcessedAt   *time.Time
	VideoPurgeAt  *time.Time // survives restarts; honored by the sweeper
}

// Terminal reports whether the session reached a final status.
func (c *LivenessCheck) Terminal() bool {
	switch c.Status {
	case LivenessPassed, LivenessFailed, LivenessError:
		return true
	}
	return false
}
