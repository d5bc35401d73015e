package transcript

import (
	"github.com/ragchat/chatstream/log"
	"github.com/ragchat/chatstream/wire"
)

// Reduce applies one fragment to a transcript and returns the resulting
// snapshot. The input transcript is never modified; callers replace their
// reference with the return value so change detection observes the update.
//
// Routing rules, in order:
//
//  1. Human fragments always append a new single-part logical message.
//  2. A start fragment always opens a new AI logical message.
//  3. Everything else routes by id to the most recent AI message with that
//     id. Fragments that match nothing are dropped with a warning.
//
// Growth is monotonic: no accepted part is ever removed or shortened, and
// the message list only shrinks through an explicit clear.
func Reduce(t *Transcript, frag wire.Fragment) *Transcript {
	return reduce(t, frag, log.Default())
}

// ReduceWithLogger is Reduce with an injected logger.
func ReduceWithLogger(t *Transcript, frag wire.Fragment, logger log.Logger) *Transcript {
	if logger == nil {
		logger = log.Default()
	}
	return reduce(t, frag, logger)
}

func reduce(t *Transcript, frag wire.Fragment, logger log.Logger) *Transcript {
	if t == nil {
		t = New()
	}

	// Welcome greetings are accepted but carry nothing to assemble.
	if frag.Type == wire.TypeWelcome {
		return t
	}

	if frag.Role == wire.RoleHuman {
		return appendHuman(t, frag)
	}

	if frag.Type == wire.TypeStart {
		return appendTurn(t, frag)
	}

	i := t.find(frag.ID, wire.RoleAI)
	if i < 0 {
		logger.Warn("dropping unroutable fragment: id=%q type=%q", frag.ID, frag.Type)
		return t
	}

	next := t.clone()
	msg := next.cloneMessage(i)

	switch frag.Type {
	case wire.TypeMessage:
		appendText(msg, "", wire.TypeMessage, frag.Text())
	case wire.TypeThinking, wire.TypeToolCallResult, wire.TypeSQL:
		appendText(msg, frag.PartID, frag.Type, frag.Text())
	case wire.TypeStop, wire.TypeReferences:
		if !appendReferences(msg, frag, logger) {
			return t
		}
	case wire.TypeError:
		msg.Failed = true
		msg.Parts = append(msg.Parts, &Part{Type: wire.TypeError, Text: frag.Text()})
	default:
		logger.Warn("dropping fragment with unhandled type %q", frag.Type)
		return t
	}
	return next
}

// appendHuman appends the atomic single-part message for a user query.
func appendHuman(t *Transcript, frag wire.Fragment) *Transcript {
	next := t.clone()
	next.Messages = append(next.Messages, &Message{
		ID:        frag.ID,
		Role:      wire.RoleHuman,
		Timestamp: frag.Timestamp,
		Parts:     []*Part{{Type: wire.TypeMessage, Text: frag.Text()}},
	})
	return next
}

// appendTurn opens a new AI logical message holding an empty answer part.
// The server is expected to stop the previous turn first, but an unstopped
// one is simply left behind; it stops receiving the streaming flag once a
// newer AI message exists.
func appendTurn(t *Transcript, frag wire.Fragment) *Transcript {
	next := t.clone()
	next.Messages = append(next.Messages, &Message{
		ID:        frag.ID,
		Role:      wire.RoleAI,
		Timestamp: frag.Timestamp,
		Parts:     []*Part{{Type: wire.TypeMessage, Text: ""}},
	})
	return next
}

// appendText concatenates data onto the part identified by partID and type,
// creating the part on first sight. The answer part is keyed by its type
// alone; thinking, tool-call and sql streams are keyed by part id so that
// parallel streams never bleed into each other.
func appendText(msg *Message, partID string, typ wire.FragmentType, data string) {
	p := msg.part(func(p *Part) bool {
		if typ == wire.TypeMessage {
			return p.Type == wire.TypeMessage
		}
		return p.Type == typ && p.PartID == partID
	})
	if p == nil {
		msg.Parts = append(msg.Parts, &Part{PartID: partID, Type: typ, Text: data})
		return
	}
	p.Text += data
}

// appendReferences synthesizes the references part from a stop (or bare
// references) fragment. Duplicate delivery of stop must not duplicate the
// block, so an existing references part makes this a no-op.
func appendReferences(msg *Message, frag wire.Fragment, logger log.Logger) bool {
	if msg.ReferencesPart() != nil {
		return false
	}
	refs, err := frag.References()
	if err != nil {
		logger.Warn("malformed references payload on %q: %v", frag.ID, err)
		refs = nil
	}
	msg.Parts = append(msg.Parts, &Part{Type: wire.TypeReferences, References: refs})
	return true
}
