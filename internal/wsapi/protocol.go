// Package wsapi implements the live transaction subscription channel: a
// gorilla/websocket session actor per connection, a hub that fans store
// events out to matching subscriptions, filter matching, heartbeat and
// idle-timeout handling, and resume-from-slot catch-up replay.
package wsapi

import (
	"encoding/json"

	"github.com/txindexd/txindexd/internal/txmodel"
)

// MsgType discriminates the envelope's payload, using a tagged `type`
// field convention for JSON framing.
type MsgType string

const (
	MsgSubscribe   MsgType = "Subscribe"
	MsgUnsubscribe MsgType = "Unsubscribe"
	MsgPong        MsgType = "Pong"
	MsgAck         MsgType = "Ack"
	MsgEvent       MsgType = "Event"
	MsgError       MsgType = "Error"
	MsgPing        MsgType = "Ping"
	MsgInfo        MsgType = "Info"
)

// ClientMessage is the envelope for every inbound message. Only the
// fields relevant to Type are populated.
type ClientMessage struct {
	Type           MsgType         `json:"type"`
	Filters        txmodel.Filter  `json:"filters,omitempty"`
	ResumeFromSlot *int64          `json:"resume_from_slot,omitempty"`
	ID             string          `json:"id,omitempty"`
	Ts             uint64          `json:"ts,omitempty"`
}

// ServerMessage is the envelope for every outbound message.
type ServerMessage struct {
	Type    MsgType         `json:"type"`
	ID      string          `json:"id,omitempty"`
	Filters *txmodel.Filter `json:"filters,omitempty"`
	Sub     string          `json:"sub,omitempty"`
	Tx      json.RawMessage `json:"tx,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Ts      uint64          `json:"ts,omitempty"`
}

func ackMessage(id string, filters txmodel.Filter) ServerMessage {
	return ServerMessage{Type: MsgAck, ID: id, Filters: &filters}
}

func errorMessage(code, message string) ServerMessage {
	return ServerMessage{Type: MsgError, Code: code, Message: message}
}

func infoMessage(message string) ServerMessage {
	return ServerMessage{Type: MsgInfo, Message: message}
}

func pingMessage(ts uint64) ServerMessage {
	return ServerMessage{Type: MsgPing, Ts: ts}
}

func eventMessage(subID string, tx txmodel.Transaction) (ServerMessage, error) {
	payload, err := json.Marshal(tx)
	if err != nil {
		return ServerMessage{}, err
	}
	return ServerMessage{Type: MsgEvent, Sub: subID, Tx: payload}, nil
}
