package conn

import (
	"fmt"
	"net/url"
)

// URL derives the chat WebSocket endpoint from the REST base URL and the
// active bot and chat identifiers. Protocol selection mirrors the base:
// https becomes wss, plain http becomes ws.
func URL(base, botID, chatID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("conn: parse base url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("conn: unsupported scheme %q", u.Scheme)
	}
	u.Path = fmt.Sprintf("/api/v1/bots/%s/chats/%s/connect", botID, chatID)
	return u.String(), nil
}
