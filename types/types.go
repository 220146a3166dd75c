package types

// Topic is one content topic plus the chosen subtopic
type Topic struct {
	Main      string `json:"main"`
	Subtopic  string `json:"subtopic"`
	Tone      string `json:"tone"`
	LengthSec int    `json:"length_sec"`
}

// ScriptText is the spoken-word payload pasted into the TTS site.
// Downstream stages treat it as an opaque blob.
type ScriptText struct {
	Body     string `json:"body"`
	Fallback bool   `json:"fallback"` // true when the canned text was used
}

// AudioArtifact is the result of the audio normalization stage
type AudioArtifact struct {
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`
	SampleRate int    `json:"sample_rate"`
	Status     string `json:"status"` // pending | converted | failed
}

// PostResult is the outcome of a social publish flow
type PostResult struct {
	Target    string `json:"target"` // instagram | youtube
	URL       string `json:"url,omitempty"`
	Confirmed bool   `json:"confirmed"`
}

// PipelineState tracks the full state of one run
type PipelineState struct {
	RunID       string         `json:"run_id"`
	StartedAt   string         `json:"started_at"`
	CompletedAt string         `json:"completed_at"`
	Topic       *Topic         `json:"topic"`
	Script      *ScriptText    `json:"script"`
	Artifact    *AudioArtifact `json:"artifact"`
	Post        *PostResult    `json:"post,omitempty"`
	Error       string         `json:"error,omitempty"`
}
