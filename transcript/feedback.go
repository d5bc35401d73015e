package transcript

import (
	"errors"
	"fmt"

	"github.com/ragchat/chatstream/wire"
)

// ErrNoSuchMessage is returned when feedback targets an id with no
// references part, i.e. a turn that never completed or does not exist.
var ErrNoSuchMessage = errors.New("transcript: no completed message with that id")

// ApplyFeedback sets the vote on the references part of the message with the
// given id and returns the new snapshot alongside the effective value.
//
// Votes toggle: submitting good while the current vote is already good
// clears it. A bad vote always replaces whatever is present, carrying the
// caller-captured tag and reason.
func ApplyFeedback(t *Transcript, messageID string, fb wire.Feedback) (*Transcript, wire.Feedback, error) {
	i := t.find(messageID, wire.RoleAI)
	if i < 0 {
		return t, wire.Feedback{}, fmt.Errorf("%w: %s", ErrNoSuchMessage, messageID)
	}
	if t.Messages[i].ReferencesPart() == nil {
		return t, wire.Feedback{}, fmt.Errorf("%w: %s", ErrNoSuchMessage, messageID)
	}

	next := t.clone()
	msg := next.cloneMessage(i)
	part := msg.ReferencesPart()

	effective := resolve(part.Feedback, fb)
	part.Feedback = effective
	return next, effective, nil
}

// resolve computes the stored value for a new vote given the current one.
func resolve(current, vote wire.Feedback) wire.Feedback {
	if vote.Type == wire.FeedbackGood && current.Type == wire.FeedbackGood {
		return wire.Feedback{}
	}
	return vote
}
