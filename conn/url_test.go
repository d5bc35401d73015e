package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL(t *testing.T) {
	u, err := URL("https://rag.example.com", "bot-1", "chat-9")
	require.NoError(t, err)
	assert.Equal(t, "wss://rag.example.com/api/v1/bots/bot-1/chats/chat-9/connect", u)

	u, err = URL("http://localhost:8080", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/api/v1/bots/b/chats/c/connect", u)
}

func TestURL_WSSchemesPassThrough(t *testing.T) {
	u, err := URL("ws://localhost:8080", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/api/v1/bots/b/chats/c/connect", u)
}

func TestURL_UnsupportedScheme(t *testing.T) {
	_, err := URL("ftp://example.com", "b", "c")
	assert.Error(t, err)
}
