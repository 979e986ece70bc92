package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/credentials"
)

type ChatPart struct {
	Text string `json:"text"`
}

// ChatTurn is one history entry in the shape the assistant endpoint expects.
type ChatTurn struct {
	Role  string     `json:"role"`
	Parts []ChatPart `json:"parts"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// AskChat sends message with the prior history. Some backend versions return the
// JSON document as a JSON string, so both shapes are accepted.
func (c *Client) AskChat(ctx context.Context, cred credentials.Credential, message string, history []ChatTurn) (string, error) {
	const op = "ask chat"
	if history == nil {
		history = []ChatTurn{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("%s: encode history: %w", op, err)
	}
	body, contentType, err := encodeForm(
		formField{name: "message", value: message},
		formField{name: "history", value: string(historyJSON)},
	)
	if err != nil {
		return "", fmt.Errorf("%s: encode form: %w", op, err)
	}

	data, err := c.do(ctx, call{
		op:          op,
		method:      http.MethodPost,
		path:        "/chat/ask",
		body:        body,
		contentType: contentType,
		token:       cred.Token,
	})
	if err != nil {
		return "", err
	}
	return decodeChatReply(data)
}

func decodeChatReply(data []byte) (string, error) {
	var encoded string
	if err := json.Unmarshal(data, &encoded); err == nil {
		data = []byte(encoded)
	}
	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("ask chat: decode: %w", err)
	}
	return resp.Reply, nil
}
