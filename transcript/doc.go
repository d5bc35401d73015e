// Package transcript assembles streamed chat fragments into ordered,
// partially mutable message transcripts.
//
// The server delivers an unbounded sequence of incremental fragments per
// chat session: start, message, thinking, tool_call_result, sql, stop and
// error. Reduce folds one fragment into a transcript and returns a new
// immutable snapshot, so rendering layers can rely on reference equality
// for change detection:
//
//	t := transcript.New()
//	for frag := range fragments {
//		t = transcript.Reduce(t, frag)
//		render(t)
//	}
//
// Assembler adds the streaming-lifecycle flag on top of the reducer and is
// what session.Chat drives from its reconciliation loop.
//
// Guarantees:
//
//   - Growth is append-only: accepted parts never shrink and the message
//     list only shrinks on an explicit clear.
//   - Parts with distinct part ids stream independently and are never
//     concatenated into each other.
//   - Applying the same stop fragment twice produces exactly one
//     references part.
//   - Unroutable fragments are dropped with a warning, never a panic.
package transcript
