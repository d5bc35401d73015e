package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFragment(t *testing.T) {
	data := []byte(`{"id":"m1","part_id":"p1","type":"thinking","role":"ai","data":"consider...","timestamp":1724800000}`)

	frag, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "m1", frag.ID)
	assert.Equal(t, "p1", frag.PartID)
	assert.Equal(t, TypeThinking, frag.Type)
	assert.Equal(t, RoleAI, frag.Role)
	assert.Equal(t, "consider...", frag.Text())
	assert.Equal(t, int64(1724800000), frag.Timestamp)
}

func TestDecodeFragment_UnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"id":"m1","type":"telemetry"}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown fragment type")
}

func TestFragmentText(t *testing.T) {
	// JSON string payload
	frag := Fragment{Data: json.RawMessage(`"hello"`)}
	assert.Equal(t, "hello", frag.Text())

	// Empty payload
	assert.Equal(t, "", Fragment{}.Text())

	// Non-string payload decays to raw bytes instead of vanishing
	frag = Fragment{Data: json.RawMessage(`{"x":1}`)}
	assert.Equal(t, `{"x":1}`, frag.Text())
}

func TestFragmentReferences(t *testing.T) {
	frag := Fragment{
		Type: TypeStop,
		Data: json.RawMessage(`[{"score":0.92,"text":"chunk one","metadata":{"doc_id":"d1"}}]`),
	}

	refs, err := frag.References()
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, 0.92, refs[0].Score)
	assert.Equal(t, "chunk one", refs[0].Text)
	assert.Equal(t, "d1", refs[0].Metadata["doc_id"])

	// Empty data is an empty reference list, not an error
	refs, err = Fragment{Type: TypeStop}.References()
	require.NoError(t, err)
	assert.Empty(t, refs)

	// Malformed data is an error
	_, err = Fragment{Data: json.RawMessage(`"nope"`)}.References()
	assert.Error(t, err)
}

func TestNewHumanMessage(t *testing.T) {
	frag := NewHumanMessage("what is churn?")

	assert.NotEmpty(t, frag.ID)
	assert.Equal(t, TypeMessage, frag.Type)
	assert.Equal(t, RoleHuman, frag.Role)
	assert.Equal(t, "what is churn?", frag.Text())
	assert.NotZero(t, frag.Timestamp)

	// Distinct sends get distinct turn ids
	assert.NotEqual(t, frag.ID, NewHumanMessage("again").ID)
}

func TestFragmentEncodeRoundTrip(t *testing.T) {
	frag := NewHumanMessage("hello")
	data, err := frag.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, frag.ID, decoded.ID)
	assert.Equal(t, "hello", decoded.Text())
}

func TestFeedbackIsZero(t *testing.T) {
	assert.True(t, Feedback{}.IsZero())
	assert.False(t, Feedback{Type: FeedbackGood}.IsZero())
	assert.False(t, Feedback{Type: FeedbackBad, Tag: "wrong", Message: "made it up"}.IsZero())
}
