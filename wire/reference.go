package wire

// Reference is a retrieved-document citation attached to a turn's references
// part. Metadata is free-form; for graph/PDF-aware backends it carries source
// document identifiers and source-map coordinates.
type Reference struct {
	Score    float64        `json:"score"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FeedbackType is the polarity of a user vote on a turn.
type FeedbackType string

const (
	// FeedbackGood is a thumbs-up vote.
	FeedbackGood FeedbackType = "good"
	// FeedbackBad is a thumbs-down vote. It always carries a reason.
	FeedbackBad FeedbackType = "bad"
)

// Feedback is a user vote attached to the references part of one logical
// message. The zero value means no vote.
type Feedback struct {
	Type    FeedbackType `json:"type,omitempty"`
	Tag     string       `json:"tag,omitempty"`
	Message string       `json:"message,omitempty"`
}

// IsZero reports whether no vote has been recorded.
func (f Feedback) IsZero() bool {
	return f.Type == ""
}
