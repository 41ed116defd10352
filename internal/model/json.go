package model

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// wireEvent is the serialized form of an Event. Timestamps travel as
// RFC3339 strings or null, matching the model JSON consumed on the
// adapter/renderer boundary.
type wireEvent struct {
	Index     int             `json:"index"`
	Timestamp *string         `json:"timestamp"`
	Role      Role            `json:"role"`
	Content   []ContentBlock  `json:"content"`
	Tool      *ToolInvocation `json:"tool"`
}

type wireSession struct {
	Agent     Agent       `json:"agent"`
	SessionID string      `json:"sessionId"`
	Events    []wireEvent `json:"events"`
}

// MarshalJSON encodes the event with a null timestamp when the source
// carried none.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.wire())
}

// UnmarshalJSON decodes the wire form, treating a null or malformed
// timestamp as absent.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = w.event()
	return nil
}

func (e Event) wire() wireEvent {
	w := wireEvent{
		Index:   e.Index,
		Role:    e.Role,
		Content: e.Content,
		Tool:    e.Tool,
	}
	if w.Content == nil {
		w.Content = []ContentBlock{}
	}
	if !e.Timestamp.IsZero() {
		ts := e.Timestamp.UTC().Format(time.RFC3339Nano)
		w.Timestamp = &ts
	}
	return w
}

func (w wireEvent) event() Event {
	e := Event{
		Index:   w.Index,
		Role:    w.Role,
		Content: w.Content,
		Tool:    w.Tool,
	}
	if w.Timestamp != nil {
		if ts, err := time.Parse(time.RFC3339Nano, *w.Timestamp); err == nil {
			e.Timestamp = ts
		}
	}
	return e
}

// MarshalJSON encodes the full session in the wire format.
func (s *Session) MarshalJSON() ([]byte, error) {
	w := wireSession{
		Agent:     s.Agent,
		SessionID: s.SessionID,
		Events:    make([]wireEvent, len(s.Events)),
	}
	for i, event := range s.Events {
		w.Events[i] = event.wire()
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire format back into a session.
func (s *Session) UnmarshalJSON(data []byte) error {
	var w wireSession
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.Agent = w.Agent
	s.SessionID = w.SessionID
	s.Events = make([]Event, len(w.Events))
	for i, we := range w.Events {
		s.Events[i] = we.event()
	}
	return nil
}

// WriteJSON writes the session model artifact to w, indented.
func WriteJSON(w io.Writer, s *Session) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode session model: %w", err)
	}
	return nil
}

// ReadJSON reads a session model artifact from r.
func ReadJSON(r io.Reader) (*Session, error) {
	var s Session
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode session model: %w", err)
	}
	return &s, nil
}
