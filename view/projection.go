// Package view derives render state from a transcript snapshot and renders
// transcripts to HTML or a terminal. The projection is a pure function of
// transcript plus loading flag; no flags are baked into parts.
package view

import (
	"github.com/ragchat/chatstream/transcript"
)

// Flags is the per-message render state derived from assembler state.
type Flags struct {
	// IsPending is true only for the most recent AI message while loading
	// and before any visible content arrived. The UI shows a thinking
	// ellipsis instead of an empty bubble.
	IsPending bool

	// IsStreaming is true for the most recent AI message while loading. The
	// UI uses it to animate and keep newly arriving thinking and tool-call
	// sections expanded.
	IsStreaming bool
}

// Project computes the flags for every message in the transcript. The result
// is positionally parallel to t.Messages and recomputes identically from the
// same inputs.
func Project(t *transcript.Transcript, loading bool) []Flags {
	flags := make([]Flags, t.Len())
	if !loading {
		return flags
	}
	last := t.LastAI()
	if last < 0 {
		return flags
	}
	msg := t.Messages[last]
	flags[last] = Flags{
		IsStreaming: true,
		IsPending:   !msg.HasContent(),
	}
	return flags
}
