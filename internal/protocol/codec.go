package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Codec turns messages into frame payloads and back. Implementations must be
// symmetric: decoding an encoded value yields an equal value. Decoding is all
// or nothing: on error no message is returned.
type Codec interface {
	EncodeServer(msg ServerMessage) ([]byte, error)
	DecodeServer(data []byte) (ServerMessage, error)
	EncodeClient(msg ClientMessage) ([]byte, error)
	DecodeClient(data []byte) (ClientMessage, error)
}

// ErrNilMessage is returned when asked to encode a nil message
var ErrNilMessage = errors.New("cannot encode nil message")

// DecodeError reports a frame that does not hold a valid message
type DecodeError struct {
	Type   MessageType // empty when the envelope itself was unreadable
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "invalid message"
	if e.Type != "" {
		msg += " " + string(e.Type)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is (or wraps) a DecodeError
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

type fieldError struct {
	field  string
	reason string
}

func (e *fieldError) Error() string {
	return e.field + " " + e.reason
}

func errField(field, reason string) error {
	return &fieldError{field: field, reason: reason}
}

// envelope is the JSON frame layout: {"type": "...", "data": {...}}
type envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// JSONCodec encodes messages as JSON envelopes
type JSONCodec struct{}

// NewJSONCodec creates a JSONCodec
func NewJSONCodec() JSONCodec {
	return JSONCodec{}
}

var _ Codec = JSONCodec{}

func (JSONCodec) EncodeServer(msg ServerMessage) ([]byte, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	return encodeEnvelope(msg.Type(), msg, hasServerPayload(msg.Type()))
}

func (JSONCodec) EncodeClient(msg ClientMessage) ([]byte, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	return encodeEnvelope(msg.Type(), msg, hasClientPayload(msg.Type()))
}

func (JSONCodec) DecodeClient(data []byte) (ClientMessage, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case TypeConnect:
		return clientPayload[Connect](env, true)
	case TypeGetPlayers:
		return clientPayload[GetPlayers](env, false)
	case TypeChangeName:
		return clientPayload[ChangeName](env, true)
	case TypeChallengePlayer:
		return clientPayload[ChallengePlayer](env, true)
	case TypeAcceptChallenge:
		return clientPayload[AcceptChallenge](env, true)
	case TypeDenyChallenge:
		return clientPayload[DenyChallenge](env, true)
	case TypeReportState:
		return clientPayload[ReportState](env, true)
	case TypeDisconnect:
		return clientPayload[Disconnect](env, false)
	default:
		return nil, &DecodeError{Type: env.Type, Reason: "unknown client message type"}
	}
}

func (JSONCodec) DecodeServer(data []byte) (ServerMessage, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case TypeWelcome:
		return serverPayload[Welcome](env, true)
	case TypeInvalidMessage:
		return serverPayload[InvalidMessage](env, false)
	case TypePlayerJoined:
		return serverPayload[PlayerJoined](env, true)
	case TypeGoodBye:
		return serverPayload[GoodBye](env, true)
	case TypePlayerChangedName:
		return serverPayload[PlayerChangedName](env, true)
	case TypeNameNotAvailable:
		return serverPayload[NameNotAvailable](env, false)
	case TypeChallengeReceived:
		return serverPayload[ChallengeReceived](env, true)
	case TypeChallengeDenied:
		return serverPayload[ChallengeDenied](env, true)
	case TypeChallengeAccepted:
		return serverPayload[ChallengeAccepted](env, true)
	case TypeRequestReceived:
		return serverPayload[RequestReceived](env, true)
	default:
		return nil, &DecodeError{Type: env.Type, Reason: "unknown server message type"}
	}
}

func hasClientPayload(t MessageType) bool {
	return t != TypeGetPlayers && t != TypeDisconnect
}

func hasServerPayload(t MessageType) bool {
	return t != TypeInvalidMessage && t != TypeNameNotAvailable
}

func encodeEnvelope(t MessageType, msg any, withPayload bool) ([]byte, error) {
	env := envelope{Type: t}
	if withPayload {
		data, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", t, err)
		}
		env.Data = data
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	return out, nil
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := strictUnmarshal(data, &env); err != nil {
		return envelope{}, &DecodeError{Reason: "malformed envelope", Err: err}
	}
	if env.Type == "" {
		return envelope{}, &DecodeError{Reason: "missing message type"}
	}
	return env, nil
}

func clientPayload[T ClientMessage](env envelope, required bool) (ClientMessage, error) {
	msg, err := decodePayload[T](env, required)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func serverPayload[T ServerMessage](env envelope, required bool) (ServerMessage, error) {
	msg, err := decodePayload[T](env, required)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// decodePayload decodes env.Data into a T. Payload-carrying variants require
// a data object; empty variants accept an absent, null, or empty object.
func decodePayload[T any](env envelope, required bool) (T, error) {
	var msg T
	empty := len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null"))
	if empty {
		if required {
			return msg, &DecodeError{Type: env.Type, Reason: "missing data"}
		}
		return msg, nil
	}

	if err := strictUnmarshal(env.Data, &msg); err != nil {
		return msg, &DecodeError{Type: env.Type, Reason: "malformed data", Err: err}
	}
	if v, ok := any(msg).(validator); ok {
		if err := v.validate(); err != nil {
			return msg, &DecodeError{Type: env.Type, Reason: "invalid data", Err: err}
		}
	}
	return msg, nil
}

// strictUnmarshal rejects unknown fields and trailing data
func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after message")
	}
	return nil
}
