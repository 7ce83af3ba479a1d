package socket

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire message types. Inbound and outbound sets are closed: anything else is
// treated as malformed and dropped.
const (
	MessageJoin                = "join"
	MessageContentChange       = "content-change"
	MessageContentUpdate       = "content-update"
	MessageCollaboratorsUpdate = "collaborators-update"
)

var errMalformedMessage = errors.New("malformed message")

// Inbound is the closed set of messages a client may send.
type Inbound interface {
	isInbound()
}

type JoinMessage struct {
	DocumentID string
	UserID     string
}

type ContentChangeMessage struct {
	DocumentID string
	UserID     string
	Content    string
}

func (JoinMessage) isInbound()          {}
func (ContentChangeMessage) isInbound() {}

type ContentUpdate struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type CollaboratorsUpdate struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

func decodeInbound(raw []byte) (Inbound, error) {
	var env struct {
		Type       string `json:"type"`
		DocumentID string `json:"documentId"`
		UserID     string `json:"userId"`
		Content    string `json:"content"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedMessage, err)
	}

	switch env.Type {
	case MessageJoin:
		if env.DocumentID == "" {
			return nil, fmt.Errorf("%w: join without documentId", errMalformedMessage)
		}
		return JoinMessage{DocumentID: env.DocumentID, UserID: env.UserID}, nil
	case MessageContentChange:
		if env.DocumentID == "" {
			return nil, fmt.Errorf("%w: content-change without documentId", errMalformedMessage)
		}
		return ContentChangeMessage{DocumentID: env.DocumentID, UserID: env.UserID, Content: env.Content}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", errMalformedMessage, env.Type)
	}
}
