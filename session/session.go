// Package session ties the connection manager, transcript assembler, REST
// client and optional transcript store together behind one chat orchestrator.
//
// Session replaces the ambient user/token globals of typical chat front ends
// with an explicit value created at login and passed in, and Chat runs a
// single reconciliation goroutine that consumes inbound fragments in arrival
// order, so the ordering invariant is structural.
package session

// Session identifies the authenticated user driving a chat. It is created
// when the application signs in and torn down at logout; nothing in this
// module reads identity from process-wide state.
type Session struct {
	// UserID is the authenticated user.
	UserID string
	// Token is the bearer credential for REST and WebSocket handshakes.
	Token string
	// BotID selects the bot/collection the chat runs against.
	BotID string
}
