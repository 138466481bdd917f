package realtime

import (
	"encoding/json"
	"fmt"
)

type Event string

const (
	EventStorageChanged Event = "storage.changed"
	EventSessionExpired Event = "session.expired"
)

const (
	ChannelStorage = "storage"
	ChannelSession = "session"
)

// Message is one signal between browsing contexts. Origin identifies the
// context that produced it.
type Message struct {
	Channel string          `json:"channel"`
	Event   Event           `json:"event"`
	Origin  string          `json:"origin,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func NewMessage(channel string, event Event, origin string, data any) (Message, error) {
	msg := Message{Channel: channel, Event: event, Origin: origin}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Message{}, fmt.Errorf("encode %s payload: %w", event, err)
		}
		msg.Data = raw
	}
	return msg, nil
}

func (m Message) Decode(out any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s message has no payload", m.Event)
	}
	return json.Unmarshal(m.Data, out)
}
