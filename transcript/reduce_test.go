package transcript

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragchat/chatstream/wire"
)

func textFrag(id string, typ wire.FragmentType, text string) wire.Fragment {
	data, _ := json.Marshal(text)
	return wire.Fragment{ID: id, Type: typ, Role: wire.RoleAI, Data: data}
}

func partFrag(id, partID string, typ wire.FragmentType, text string) wire.Fragment {
	f := textFrag(id, typ, text)
	f.PartID = partID
	return f
}

func stopFrag(id string, refs []wire.Reference) wire.Fragment {
	data, _ := json.Marshal(refs)
	return wire.Fragment{ID: id, Type: wire.TypeStop, Role: wire.RoleAI, Data: data}
}

func startFrag(id string) wire.Fragment {
	return wire.Fragment{ID: id, Type: wire.TypeStart, Role: wire.RoleAI, Timestamp: 1724800000}
}

func TestReduce_TextConcatenation(t *testing.T) {
	tr := New()
	tr = Reduce(tr, startFrag("m1"))
	tr = Reduce(tr, textFrag("m1", wire.TypeMessage, "Hel"))
	tr = Reduce(tr, textFrag("m1", wire.TypeMessage, "lo"))
	tr = Reduce(tr, stopFrag("m1", nil))

	require.Equal(t, 1, tr.Len())
	assert.Equal(t, "Hello", tr.Messages[0].AnswerText())
	assert.NotNil(t, tr.Messages[0].ReferencesPart())
}

func TestReduce_HumanTurnsAreAtomic(t *testing.T) {
	tr := New()
	tr = Reduce(tr, startFrag("m1"))
	tr = Reduce(tr, wire.NewHumanMessage("first"))
	tr = Reduce(tr, wire.NewHumanMessage("second"))

	require.Equal(t, 3, tr.Len())
	for _, msg := range tr.Messages[1:] {
		assert.Equal(t, wire.RoleHuman, msg.Role)
		assert.Len(t, msg.Parts, 1)
	}
	assert.Equal(t, "first", tr.Messages[1].AnswerText())
	assert.Equal(t, "second", tr.Messages[2].AnswerText())
}

func TestReduce_IndependentPartStreams(t *testing.T) {
	tr := New()
	tr = Reduce(tr, startFrag("m1"))
	tr = Reduce(tr, partFrag("m1", "t1", wire.TypeThinking, "let me "))
	tr = Reduce(tr, textFrag("m1", wire.TypeMessage, "The answer "))
	tr = Reduce(tr, partFrag("m1", "t1", wire.TypeThinking, "think"))
	tr = Reduce(tr, partFrag("m1", "t2", wire.TypeToolCallResult, "rows: 42"))
	tr = Reduce(tr, textFrag("m1", wire.TypeMessage, "is 42."))

	require.Equal(t, 1, tr.Len())
	msg := tr.Messages[0]

	assert.Equal(t, "The answer is 42.", msg.AnswerText())

	thinking := findPart(msg, wire.TypeThinking, "t1")
	require.NotNil(t, thinking)
	assert.Equal(t, "let me think", thinking.Text)

	tool := findPart(msg, wire.TypeToolCallResult, "t2")
	require.NotNil(t, tool)
	assert.Equal(t, "rows: 42", tool.Text)
}

func findPart(m *Message, typ wire.FragmentType, partID string) *Part {
	for _, p := range m.Parts {
		if p.Type == typ && p.PartID == partID {
			return p
		}
	}
	return nil
}

func TestReduce_IdempotentStop(t *testing.T) {
	refs := []wire.Reference{{Score: 0.9, Text: "chunk"}}

	tr := New()
	tr = Reduce(tr, startFrag("m1"))
	tr = Reduce(tr, textFrag("m1", wire.TypeMessage, "done"))
	tr = Reduce(tr, stopFrag("m1", refs))
	tr = Reduce(tr, stopFrag("m1", refs))

	msg := tr.Messages[0]
	count := 0
	for _, p := range msg.Parts {
		if p.Type == wire.TypeReferences {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, refs, msg.ReferencesPart().References)
}

func TestReduce_UnroutableFragmentIsDropped(t *testing.T) {
	tr := New()
	tr = Reduce(tr, startFrag("m1"))
	before := tr

	tr = Reduce(tr, textFrag("ghost", wire.TypeMessage, "lost"))
	assert.Same(t, before, tr)

	// A stop for an unknown turn is equally dropped
	tr = Reduce(tr, stopFrag("ghost", nil))
	assert.Same(t, before, tr)
}

func TestReduce_ErrorMarksTurnFailedAndKeepsPartialOutput(t *testing.T) {
	tr := New()
	tr = Reduce(tr, startFrag("m1"))
	tr = Reduce(tr, textFrag("m1", wire.TypeMessage, "partial "))
	tr = Reduce(tr, textFrag("m1", wire.TypeError, "model overloaded"))

	msg := tr.Messages[0]
	assert.True(t, msg.Failed)
	assert.Equal(t, "partial ", msg.AnswerText())

	errPart := msg.part(func(p *Part) bool { return p.Type == wire.TypeError })
	require.NotNil(t, errPart)
	assert.Equal(t, "model overloaded", errPart.Text)
}

func TestReduce_WelcomeIsNoOp(t *testing.T) {
	tr := New()
	out := Reduce(tr, wire.Fragment{Type: wire.TypeWelcome, Role: wire.RoleAI})
	assert.Same(t, tr, out)
}

func TestReduce_SecondStartOpensNewTurn(t *testing.T) {
	tr := New()
	tr = Reduce(tr, startFrag("m1"))
	tr = Reduce(tr, textFrag("m1", wire.TypeMessage, "first"))
	tr = Reduce(tr, startFrag("m2"))
	tr = Reduce(tr, textFrag("m2", wire.TypeMessage, "second"))

	require.Equal(t, 2, tr.Len())
	assert.Equal(t, "first", tr.Messages[0].AnswerText())
	assert.Equal(t, "second", tr.Messages[1].AnswerText())

	// Late fragments for the superseded turn still route by id
	tr = Reduce(tr, textFrag("m1", wire.TypeMessage, " still grows"))
	assert.Equal(t, "first still grows", tr.Messages[0].AnswerText())
}

func TestReduce_SQLStreamsIntoOwnPart(t *testing.T) {
	tr := New()
	tr = Reduce(tr, startFrag("m1"))
	tr = Reduce(tr, partFrag("m1", "q1", wire.TypeSQL, "SELECT *"))
	tr = Reduce(tr, partFrag("m1", "q1", wire.TypeSQL, " FROM users"))
	tr = Reduce(tr, textFrag("m1", wire.TypeMessage, "Here is the query."))

	msg := tr.Messages[0]
	sqlPart := findPart(msg, wire.TypeSQL, "q1")
	require.NotNil(t, sqlPart)
	assert.Equal(t, "SELECT * FROM users", sqlPart.Text)
	assert.Equal(t, "Here is the query.", msg.AnswerText())
}

func TestReduce_AppendOnlyGrowth(t *testing.T) {
	frags := []wire.Fragment{
		wire.NewHumanMessage("hi"),
		startFrag("m1"),
		partFrag("m1", "t1", wire.TypeThinking, "hmm"),
		textFrag("m1", wire.TypeMessage, "Hel"),
		textFrag("ghost", wire.TypeMessage, "dropped"),
		textFrag("m1", wire.TypeMessage, "lo"),
		stopFrag("m1", nil),
		wire.NewHumanMessage("more"),
	}

	tr := New()
	prevLen := 0
	prevTexts := map[string]int{}
	for _, frag := range frags {
		tr = Reduce(tr, frag)

		assert.GreaterOrEqual(t, tr.Len(), prevLen)
		prevLen = tr.Len()

		for mi, msg := range tr.Messages {
			for pi, p := range msg.Parts {
				key := fmt.Sprintf("%d/%d", mi, pi)
				assert.GreaterOrEqual(t, len(p.Text), prevTexts[key])
				prevTexts[key] = len(p.Text)
			}
		}
	}
}

func TestReduce_CopyOnWrite(t *testing.T) {
	tr := New()
	tr = Reduce(tr, startFrag("m1"))
	snapshot := tr

	tr = Reduce(tr, textFrag("m1", wire.TypeMessage, "mutation"))

	assert.NotSame(t, snapshot, tr)
	assert.Equal(t, "", snapshot.Messages[0].AnswerText())
	assert.Equal(t, "mutation", tr.Messages[0].AnswerText())
}
