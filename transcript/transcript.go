package transcript

import (
	"github.com/ragchat/chatstream/wire"
)

// Part is a distinct sub-section of a logical message: the answer text, a
// thinking block, a tool-call result, generated SQL, the reference list, or
// an error block. Sibling parts are never concatenated into each other.
type Part struct {
	// PartID distinguishes independent streams within one AI turn. It is
	// empty for the single answer part of a turn and for human parts.
	PartID     string            `json:"part_id,omitempty"`
	Type       wire.FragmentType `json:"type"`
	Text       string            `json:"text,omitempty"`
	References []wire.Reference  `json:"references,omitempty"`
	Feedback   wire.Feedback     `json:"feedback,omitempty"`
}

// Message is one logical message: the full assembled output for one human
// query or one AI response, built from every fragment sharing an id.
type Message struct {
	ID        string    `json:"id"`
	Role      wire.Role `json:"role"`
	Timestamp int64     `json:"timestamp,omitempty"`
	Parts     []*Part   `json:"parts"`
	// Failed is set when the server terminated the turn with an error
	// fragment. Parts accepted before the failure are kept.
	Failed bool `json:"failed,omitempty"`
}

// Transcript is the ordered list of logical messages for one chat session,
// insertion order being the arrival order of each message's first fragment.
// Values are treated as immutable snapshots: Reduce and ApplyFeedback return
// a new Transcript and never modify the one they were given.
type Transcript struct {
	Messages []*Message `json:"messages"`
}

// New returns an empty transcript.
func New() *Transcript {
	return &Transcript{}
}

// Len returns the number of logical messages.
func (t *Transcript) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Messages)
}

// Last returns the most recent logical message, or nil when empty.
func (t *Transcript) Last() *Message {
	if t.Len() == 0 {
		return nil
	}
	return t.Messages[len(t.Messages)-1]
}

// LastAI returns the index of the most recent AI message, or -1.
func (t *Transcript) LastAI() int {
	for i := t.Len() - 1; i >= 0; i-- {
		if t.Messages[i].Role == wire.RoleAI {
			return i
		}
	}
	return -1
}

// find locates the most recent message with the given id and role, searching
// from the end backward. Lookup is by id rather than position because
// fragments may interleave across turns.
func (t *Transcript) find(id string, role wire.Role) int {
	if id == "" {
		return -1
	}
	for i := t.Len() - 1; i >= 0; i-- {
		if t.Messages[i].ID == id && t.Messages[i].Role == role {
			return i
		}
	}
	return -1
}

// part returns the message's part matching the predicate, or nil.
func (m *Message) part(match func(*Part) bool) *Part {
	for _, p := range m.Parts {
		if match(p) {
			return p
		}
	}
	return nil
}

// AnswerText returns the text of the message's answer part.
func (m *Message) AnswerText() string {
	p := m.part(func(p *Part) bool { return p.Type == wire.TypeMessage })
	if p == nil {
		return ""
	}
	return p.Text
}

// ReferencesPart returns the message's references part, or nil if the turn
// has not been terminated by a stop fragment yet.
func (m *Message) ReferencesPart() *Part {
	return m.part(func(p *Part) bool { return p.Type == wire.TypeReferences })
}

// HasContent reports whether any part carries visible output. A turn whose
// only part is the empty answer placeholder has no content yet.
func (m *Message) HasContent() bool {
	for _, p := range m.Parts {
		if p.Text != "" || len(p.References) > 0 {
			return true
		}
	}
	return false
}

// Open reports whether the turn is still accepting appended parts: an AI
// message that has not seen stop or error.
func (m *Message) Open() bool {
	return m.Role == wire.RoleAI && !m.Failed && m.ReferencesPart() == nil
}

// clone returns a copy of the transcript sharing all message pointers. The
// reducer copies individual messages on write so that previously published
// snapshots stay untouched.
func (t *Transcript) clone() *Transcript {
	msgs := make([]*Message, t.Len())
	copy(msgs, t.Messages)
	return &Transcript{Messages: msgs}
}

// cloneMessage returns a copy of the message at index i with its own parts
// slice and copied parts, already swapped into the cloned transcript.
func (t *Transcript) cloneMessage(i int) *Message {
	orig := t.Messages[i]
	parts := make([]*Part, len(orig.Parts))
	for j, p := range orig.Parts {
		cp := *p
		parts[j] = &cp
	}
	m := *orig
	m.Parts = parts
	t.Messages[i] = &m
	return &m
}
