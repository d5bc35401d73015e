package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FragmentType identifies the kind of payload a fragment carries.
type FragmentType string

const (
	// TypeStart opens a new AI turn. It carries no payload.
	TypeStart FragmentType = "start"
	// TypeMessage carries an incremental slice of the turn's answer text.
	TypeMessage FragmentType = "message"
	// TypeThinking carries an incremental slice of a reasoning block.
	TypeThinking FragmentType = "thinking"
	// TypeToolCallResult carries an incremental slice of a tool invocation's output.
	TypeToolCallResult FragmentType = "tool_call_result"
	// TypeReferences carries the retrieved-document citations for a turn.
	TypeReferences FragmentType = "references"
	// TypeStop terminates a turn. Its data is the reference array for the turn.
	TypeStop FragmentType = "stop"
	// TypeError terminates a turn with a server-side failure message.
	TypeError FragmentType = "error"
	// TypeWelcome is a greeting emitted on connect. It renders as nothing.
	TypeWelcome FragmentType = "welcome"
	// TypeSQL carries an incremental slice of generated SQL.
	TypeSQL FragmentType = "sql"
)

// Valid reports whether t is one of the known fragment types.
func (t FragmentType) Valid() bool {
	switch t {
	case TypeStart, TypeMessage, TypeThinking, TypeToolCallResult,
		TypeReferences, TypeStop, TypeError, TypeWelcome, TypeSQL:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown fragment types at decode time so that routing
// never sees a value outside the enum.
func (t *FragmentType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ft := FragmentType(s)
	if s != "" && !ft.Valid() {
		return fmt.Errorf("unknown fragment type %q", s)
	}
	*t = ft
	return nil
}

// Role identifies the author of a logical message.
type Role string

const (
	// RoleHuman marks a fragment authored by the user.
	RoleHuman Role = "human"
	// RoleAI marks a fragment authored by the bot.
	RoleAI Role = "ai"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleHuman || r == RoleAI
}

// Fragment is one wire-level message delivered over the chat WebSocket.
// All fragments belonging to the same logical message share an ID; an empty
// ID means the fragment is not attached to any logical message yet.
type Fragment struct {
	ID        string          `json:"id,omitempty"`
	PartID    string          `json:"part_id,omitempty"`
	Type      FragmentType    `json:"type,omitempty"`
	Role      Role            `json:"role,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Feedback  *Feedback       `json:"feedback,omitempty"`
}

// NewHumanMessage builds the outbound fragment for a user query. The ID is
// freshly generated so that reply fragments can be correlated to the turn.
func NewHumanMessage(text string) Fragment {
	data, _ := json.Marshal(text)
	return Fragment{
		ID:        uuid.NewString(),
		Type:      TypeMessage,
		Role:      RoleHuman,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

// Text decodes the data payload as a string. For text-bearing fragment types
// the server sends a JSON string; anything else decays to the raw bytes so a
// malformed payload still surfaces somewhere visible instead of vanishing.
func (f Fragment) Text() string {
	if len(f.Data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(f.Data, &s); err == nil {
		return s
	}
	return string(f.Data)
}

// References decodes the data payload as a reference array. Used for stop and
// references fragments.
func (f Fragment) References() ([]Reference, error) {
	if len(f.Data) == 0 {
		return nil, nil
	}
	var refs []Reference
	if err := json.Unmarshal(f.Data, &refs); err != nil {
		return nil, fmt.Errorf("decode references: %w", err)
	}
	return refs, nil
}

// Encode serializes the fragment for the socket.
func (f Fragment) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// Decode parses a wire-level JSON fragment.
func Decode(data []byte) (Fragment, error) {
	var f Fragment
	if err := json.Unmarshal(data, &f); err != nil {
		return Fragment{}, fmt.Errorf("decode fragment: %w", err)
	}
	return f, nil
}
