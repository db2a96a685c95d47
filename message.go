package meld

import (
	"fmt"
)

// ActionType names a client action.
type ActionType string

// Supported action types.
const (
	ActionSyncInput  ActionType = "syncInput"
	ActionCallMethod ActionType = "callMethod"
)

// Payload carries an action's arguments. For syncInput Name is the attribute
// and Value the new value; for callMethod Name is the call expression.
type Payload struct {
	Name  string `json:"name" msgpack:"name"`
	Value any    `json:"value" msgpack:"value"`
}

// Action is one queued client action.
type Action struct {
	Type    ActionType `json:"type" msgpack:"type"`
	Payload Payload    `json:"payload" msgpack:"payload"`
}

// SyncInput builds an input sync action.
func SyncInput(name string, value any) Action {
	return Action{Type: ActionSyncInput, Payload: Payload{Name: name, Value: value}}
}

// CallMethod builds a method call action from a raw call expression such as
// "add(1, 2)".
func CallMethod(expr string) Action {
	return Action{Type: ActionCallMethod, Payload: Payload{Name: expr}}
}

// Call builds a method call action from a name and literal arguments.
//
//	meld.Call("add", 1, 2) // callMethod "add(1, 2)"
func Call(method string, args ...any) Action {
	if len(args) == 0 {
		return CallMethod(method)
	}
	return CallMethod(FormatCall(method, args))
}

// Message is one client request: the component's identity, its last
// snapshot and the actions to apply in order.
type Message struct {
	ID            string         `json:"id" msgpack:"id"`
	ComponentName string         `json:"componentName" msgpack:"componentName"`
	Data          map[string]any `json:"data" msgpack:"data"`
	ActionQueue   []Action       `json:"actionQueue" msgpack:"actionQueue"`
	// Action is the single-action form sent by older clients. It is applied
	// before the queue.
	Action   *Action `json:"action,omitempty" msgpack:"action,omitempty"`
	Checksum string  `json:"checksum,omitempty" msgpack:"checksum,omitempty"`
}

// Actions returns the actions to apply, in order.
func (m *Message) Actions() []Action {
	if m.Action == nil {
		return m.ActionQueue
	}
	actions := make([]Action, 0, len(m.ActionQueue)+1)
	actions = append(actions, *m.Action)
	return append(actions, m.ActionQueue...)
}

// Validate checks the message envelope.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: empty message", ErrInvalidMessage)
	}
	if m.ComponentName == "" {
		return fmt.Errorf("%w: missing componentName", ErrInvalidMessage)
	}
	for i, a := range m.Actions() {
		if a.Type == "" {
			return fmt.Errorf("%w: action %d has no type", ErrInvalidMessage, i)
		}
	}
	return nil
}

// Response is the reply to a message: the rendered markup and the new
// snapshot.
type Response struct {
	ID       string     `json:"id" msgpack:"id"`
	DOM      string     `json:"dom" msgpack:"dom"`
	Data     Attributes `json:"data" msgpack:"data"`
	Checksum string     `json:"checksum,omitempty" msgpack:"checksum,omitempty"`
}

// ErrorResponse is the reply to a message that could not be processed.
type ErrorResponse struct {
	ID    string `json:"id,omitempty" msgpack:"id,omitempty"`
	Error string `json:"error" msgpack:"error"`
}
