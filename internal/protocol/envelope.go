// Package protocol defines the JSON envelope exchanged between the hub and
// its peers, one envelope per WebSocket text frame.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind tags the purpose of an envelope.
type Kind string

// Envelope kinds understood on the wire.
const (
	KindUser   Kind = "user"
	KindSystem Kind = "system"
	KindEcho   Kind = "echo"
	KindServer Kind = "server"
)

// Greeting is the first message a peer sends after every successful connect.
const Greeting = "Hello, WebSocket Server!"

// EchoPrefix is prepended to the original text of an echo reply.
const EchoPrefix = "Received: "

var (
	// ErrMalformed is returned when a frame is not a JSON object.
	ErrMalformed = errors.New("malformed envelope")
	// ErrMissingType is returned when an envelope has no type tag.
	ErrMissingType = errors.New("envelope type missing")
	// ErrUnknownType is returned for a type tag outside the known kinds.
	ErrUnknownType = errors.New("unknown envelope type")
)

// Envelope is the unit of exchange. ClientID only travels on user and echo
// envelopes.
type Envelope struct {
	Type     Kind   `json:"type"`
	Message  string `json:"message"`
	ClientID string `json:"client_id,omitempty"`
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindUser, KindSystem, KindEcho, KindServer:
		return true
	}
	return false
}

func (k Kind) carriesClientID() bool {
	return k == KindUser || k == KindEcho
}

// NewUser builds a user envelope stamped with the sender's id.
func NewUser(message, clientID string) Envelope {
	return Envelope{Type: KindUser, Message: message, ClientID: clientID}
}

// NewEcho builds the acknowledgement a peer sends back for a foreign user message.
func NewEcho(original, clientID string) Envelope {
	return Envelope{Type: KindEcho, Message: EchoPrefix + original, ClientID: clientID}
}

// NewServer builds an operator broadcast from the hub.
func NewServer(message string) Envelope {
	return Envelope{Type: KindServer, Message: message}
}

// NewSystem builds a system notice.
func NewSystem(message string) Envelope {
	return Envelope{Type: KindSystem, Message: message}
}

func (e Envelope) normalize() (Envelope, error) {
	if e.Type == "" {
		return e, ErrMissingType
	}
	if !e.Type.Valid() {
		return e, fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
	if !e.Type.carriesClientID() {
		e.ClientID = ""
	}
	return e, nil
}

// Encode validates env and serializes it as a single JSON frame.
func Encode(env Envelope) ([]byte, error) {
	normalized, err := env.normalize()
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}

// Decode parses one frame. Syntax errors wrap ErrMalformed.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return env.normalize()
}
