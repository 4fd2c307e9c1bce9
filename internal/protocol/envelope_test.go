package protocol

import (
	"errors"
	"testing"
)

// TestDecodeKnownKinds verifies that every known kind decodes and that
// client ids are only kept where they belong.
func TestDecodeKnownKinds(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantType     Kind
		wantMessage  string
		wantClientID string
	}{
		{
			name:         "user keeps client id",
			raw:          `{"type":"user","message":"hi","client_id":"abc"}`,
			wantType:     KindUser,
			wantMessage:  "hi",
			wantClientID: "abc",
		},
		{
			name:         "echo keeps client id",
			raw:          `{"type":"echo","message":"Received: hi","client_id":"abc"}`,
			wantType:     KindEcho,
			wantMessage:  "Received: hi",
			wantClientID: "abc",
		},
		{
			name:        "server drops client id",
			raw:         `{"type":"server","message":"hi","client_id":"abc"}`,
			wantType:    KindServer,
			wantMessage: "hi",
		},
		{
			name:        "system without client id",
			raw:         `{"type":"system","message":"welcome"}`,
			wantType:    KindSystem,
			wantMessage: "welcome",
		},
		{
			name:     "missing message is empty",
			raw:      `{"type":"user"}`,
			wantType: KindUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Decode([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Decode(%s) returned error: %v", tt.raw, err)
			}
			if env.Type != tt.wantType {
				t.Errorf("Expected type %q, got %q", tt.wantType, env.Type)
			}
			if env.Message != tt.wantMessage {
				t.Errorf("Expected message %q, got %q", tt.wantMessage, env.Message)
			}
			if env.ClientID != tt.wantClientID {
				t.Errorf("Expected client id %q, got %q", tt.wantClientID, env.ClientID)
			}
		})
	}
}

// TestDecodeRejectsBadFrames verifies the error taxonomy for bad input.
func TestDecodeRejectsBadFrames(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{name: "not json", raw: "hello", want: ErrMalformed},
		{name: "truncated", raw: `{"type":"user"`, want: ErrMalformed},
		{name: "array", raw: `["user"]`, want: ErrMalformed},
		{name: "wrong field type", raw: `{"type":"user","message":5}`, want: ErrMalformed},
		{name: "no type", raw: `{"message":"hi"}`, want: ErrMissingType},
		{name: "null", raw: `null`, want: ErrMissingType},
		{name: "unknown type", raw: `{"type":"shout","message":"hi"}`, want: ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestEncodeServerEnvelope verifies the exact frame a hub broadcast produces.
func TestEncodeServerEnvelope(t *testing.T) {
	payload, err := Encode(NewServer("hi"))
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if got, want := string(payload), `{"type":"server","message":"hi"}`; got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestEncodeRejectsUnknownKind(t *testing.T) {
	if _, err := Encode(Envelope{Type: "shout"}); !errors.Is(err, ErrUnknownType) {
		t.Errorf("Expected ErrUnknownType, got %v", err)
	}
	if _, err := Encode(Envelope{Message: "x"}); !errors.Is(err, ErrMissingType) {
		t.Errorf("Expected ErrMissingType, got %v", err)
	}
}

func TestNewEcho(t *testing.T) {
	env := NewEcho("ping", "me")
	if env.Type != KindEcho || env.Message != "Received: ping" || env.ClientID != "me" {
		t.Errorf("Unexpected echo envelope: %+v", env)
	}
}
