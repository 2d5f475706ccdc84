package relay

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the type of an inbound frame.
type Kind string

const (
	// KindJoin moves the sender into a room.
	KindJoin Kind = "join"
	// KindLeave removes the sender from a room.
	KindLeave Kind = "leave"
	// KindMessage carries chat text to a room. Outbound envelopes always
	// use this kind.
	KindMessage Kind = "message"
)

// SystemSender is the sender name used for join and leave notices.
const SystemSender = "System"

// TimestampLayout matches JavaScript's Date.prototype.toISOString output,
// which is what clients send.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Frame is one inbound client frame. Room is only meaningful for join and
// leave; Text only for message. Timestamp is echoed, never validated.
type Frame struct {
	Type      Kind   `json:"type"`
	Sender    string `json:"sender"`
	Room      string `json:"room,omitempty"`
	Text      string `json:"text,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Envelope is the only frame the server ever sends.
type Envelope struct {
	Type      Kind   `json:"type"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	System    bool   `json:"system"`
}

// ParseFrame decodes raw into a Frame. Unknown kinds decode successfully and
// are left for the router to ignore.
func ParseFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	return f, nil
}

func chatEnvelope(f Frame) Envelope {
	return Envelope{
		Type:      KindMessage,
		Sender:    f.Sender,
		Text:      f.Text,
		Timestamp: f.Timestamp,
	}
}

func systemNotice(text, timestamp string) Envelope {
	return Envelope{
		Type:      KindMessage,
		Sender:    SystemSender,
		Text:      text,
		Timestamp: timestamp,
		System:    true,
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
