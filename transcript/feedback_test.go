package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragchat/chatstream/wire"
)

func completedTurn(t *testing.T, id string) *Transcript {
	t.Helper()
	tr := New()
	tr = Reduce(tr, startFrag(id))
	tr = Reduce(tr, textFrag(id, wire.TypeMessage, "answer"))
	tr = Reduce(tr, stopFrag(id, []wire.Reference{{Score: 0.8, Text: "src"}}))
	return tr
}

func TestApplyFeedback_GoodToggles(t *testing.T) {
	tr := completedTurn(t, "m1")

	tr, effective, err := ApplyFeedback(tr, "m1", wire.Feedback{Type: wire.FeedbackGood})
	require.NoError(t, err)
	assert.Equal(t, wire.FeedbackGood, effective.Type)
	assert.Equal(t, wire.FeedbackGood, tr.Messages[0].ReferencesPart().Feedback.Type)

	// Same vote again clears it.
	tr, effective, err = ApplyFeedback(tr, "m1", wire.Feedback{Type: wire.FeedbackGood})
	require.NoError(t, err)
	assert.True(t, effective.IsZero())
	assert.True(t, tr.Messages[0].ReferencesPart().Feedback.IsZero())
}

func TestApplyFeedback_BadReplacesWithReason(t *testing.T) {
	tr := completedTurn(t, "m1")

	tr, _, err := ApplyFeedback(tr, "m1", wire.Feedback{Type: wire.FeedbackGood})
	require.NoError(t, err)

	bad := wire.Feedback{Type: wire.FeedbackBad, Tag: "hallucination", Message: "cites a doc that does not exist"}
	tr, effective, err := ApplyFeedback(tr, "m1", bad)
	require.NoError(t, err)
	assert.Equal(t, bad, effective)
	assert.Equal(t, bad, tr.Messages[0].ReferencesPart().Feedback)

	// Bad never toggles off, it replaces.
	tr, effective, err = ApplyFeedback(tr, "m1", bad)
	require.NoError(t, err)
	assert.Equal(t, bad, effective)
	assert.Equal(t, bad, tr.Messages[0].ReferencesPart().Feedback)
}

func TestApplyFeedback_UnknownMessage(t *testing.T) {
	tr := completedTurn(t, "m1")

	_, _, err := ApplyFeedback(tr, "nope", wire.Feedback{Type: wire.FeedbackGood})
	assert.ErrorIs(t, err, ErrNoSuchMessage)
}

func TestApplyFeedback_IncompleteTurn(t *testing.T) {
	// Feedback targets the references part, which only exists after stop.
	tr := New()
	tr = Reduce(tr, startFrag("m1"))

	_, _, err := ApplyFeedback(tr, "m1", wire.Feedback{Type: wire.FeedbackGood})
	assert.ErrorIs(t, err, ErrNoSuchMessage)
}

func TestApplyFeedback_CopyOnWrite(t *testing.T) {
	before := completedTurn(t, "m1")

	after, _, err := ApplyFeedback(before, "m1", wire.Feedback{Type: wire.FeedbackGood})
	require.NoError(t, err)

	assert.NotSame(t, before, after)
	assert.True(t, before.Messages[0].ReferencesPart().Feedback.IsZero())
	assert.Equal(t, wire.FeedbackGood, after.Messages[0].ReferencesPart().Feedback.Type)
}
