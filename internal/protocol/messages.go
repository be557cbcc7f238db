// Package protocol defines the lobby wire schema: two closed sets of messages,
// one per direction, and the codecs that turn them into frames.
//
// Both sets are sealed: only types in this package implement ClientMessage or
// ServerMessage, and consumers handle them with exhaustive type switches.
// Adding a variant means extending the set here, the codec tables, and every
// switch that consumes the set.
package protocol

import "github.com/hardliner66/MageBattle/internal/model"

// MessageType is the wire tag of a message variant
type MessageType string

// Client -> Server
const (
	TypeConnect         MessageType = "Connect"
	TypeGetPlayers      MessageType = "GetPlayers"
	TypeChangeName      MessageType = "ChangeName"
	TypeChallengePlayer MessageType = "ChallengePlayer"
	TypeAcceptChallenge MessageType = "AcceptChallenge"
	TypeDenyChallenge   MessageType = "DenyChallenge"
	TypeReportState     MessageType = "ReportState"
	TypeDisconnect      MessageType = "Disconnect"
)

// Server -> Client
const (
	TypeWelcome           MessageType = "Welcome"
	TypeInvalidMessage    MessageType = "InvalidMessage"
	TypePlayerJoined      MessageType = "PlayerJoined"
	TypeGoodBye           MessageType = "GoodBye"
	TypePlayerChangedName MessageType = "PlayerChangedName"
	TypeNameNotAvailable  MessageType = "NameNotAvailable"
	TypeChallengeReceived MessageType = "ChallengeReceived"
	TypeChallengeDenied   MessageType = "ChallengeDenied"
	TypeChallengeAccepted MessageType = "ChallengeAccepted"
	TypeRequestReceived   MessageType = "RequestReceived"
)

// ClientMessage is a message sent by a client to the server
type ClientMessage interface {
	Type() MessageType
	clientMessage()
}

// ServerMessage is a message sent by the server to a client
type ServerMessage interface {
	Type() MessageType
	serverMessage()
}

// ================= C -> S =================

// Connect claims a display name; it is the first message of every session
type Connect struct {
	Name string `json:"name"`
}

// GetPlayers asks for a fresh roster (one PlayerJoined per other player)
type GetPlayers struct{}

// ChangeName renames the sending player
type ChangeName struct {
	Name string `json:"name"`
}

// ChallengePlayer sends a duel request to the player with the given name
type ChallengePlayer struct {
	Name string `json:"name"`
}

// AcceptChallenge answers a received challenge positively
type AcceptChallenge struct {
	RequestID model.RequestID `json:"request_id"`
}

// DenyChallenge answers a received challenge negatively
type DenyChallenge struct {
	RequestID model.RequestID `json:"request_id"`
}

// ReportState carries match results; currently ignored by the lobby
type ReportState struct {
	Kills int `json:"kills"`
}

// Disconnect leaves the lobby explicitly before closing the socket
type Disconnect struct{}

func (Connect) Type() MessageType         { return TypeConnect }
func (GetPlayers) Type() MessageType      { return TypeGetPlayers }
func (ChangeName) Type() MessageType      { return TypeChangeName }
func (ChallengePlayer) Type() MessageType { return TypeChallengePlayer }
func (AcceptChallenge) Type() MessageType { return TypeAcceptChallenge }
func (DenyChallenge) Type() MessageType   { return TypeDenyChallenge }
func (ReportState) Type() MessageType     { return TypeReportState }
func (Disconnect) Type() MessageType      { return TypeDisconnect }

func (Connect) clientMessage()         {}
func (GetPlayers) clientMessage()      {}
func (ChangeName) clientMessage()      {}
func (ChallengePlayer) clientMessage() {}
func (AcceptChallenge) clientMessage() {}
func (DenyChallenge) clientMessage()   {}
func (ReportState) clientMessage()     {}
func (Disconnect) clientMessage()      {}

// ================= S -> C =================

// Welcome tells a freshly registered client its id
type Welcome struct {
	ID model.PlayerID `json:"id"`
}

// InvalidMessage answers a frame that could not be decoded or was not valid
// in the current session state
type InvalidMessage struct{}

// PlayerJoined announces a player (also used for roster sync)
type PlayerJoined struct {
	ID   model.PlayerID `json:"id"`
	Name string         `json:"name"`
}

// GoodBye announces that a player left
type GoodBye struct {
	ID model.PlayerID `json:"id"`
}

// PlayerChangedName announces a rename
type PlayerChangedName struct {
	ID      model.PlayerID `json:"id"`
	NewName string         `json:"new_name"`
}

// NameNotAvailable rejects a join or rename because the name is taken
type NameNotAvailable struct{}

// ChallengeReceived notifies the target of a challenge
type ChallengeReceived struct {
	RequestID model.RequestID `json:"request_id"`
	Name      string          `json:"name"`
}

// ChallengeDenied tells the challenger the target declined
type ChallengeDenied struct {
	RequestID model.RequestID `json:"request_id"`
}

// ChallengeAccepted tells the challenger the target accepted
type ChallengeAccepted struct {
	RequestID model.RequestID `json:"request_id"`
}

// RequestReceived acknowledges a challenge request id
type RequestReceived struct {
	RequestID model.RequestID `json:"request_id"`
}

func (Welcome) Type() MessageType           { return TypeWelcome }
func (InvalidMessage) Type() MessageType    { return TypeInvalidMessage }
func (PlayerJoined) Type() MessageType      { return TypePlayerJoined }
func (GoodBye) Type() MessageType           { return TypeGoodBye }
func (PlayerChangedName) Type() MessageType { return TypePlayerChangedName }
func (NameNotAvailable) Type() MessageType  { return TypeNameNotAvailable }
func (ChallengeReceived) Type() MessageType { return TypeChallengeReceived }
func (ChallengeDenied) Type() MessageType   { return TypeChallengeDenied }
func (ChallengeAccepted) Type() MessageType { return TypeChallengeAccepted }
func (RequestReceived) Type() MessageType   { return TypeRequestReceived }

func (Welcome) serverMessage()           {}
func (InvalidMessage) serverMessage()    {}
func (PlayerJoined) serverMessage()      {}
func (GoodBye) serverMessage()           {}
func (PlayerChangedName) serverMessage() {}
func (NameNotAvailable) serverMessage()  {}
func (ChallengeReceived) serverMessage() {}
func (ChallengeDenied) serverMessage()   {}
func (ChallengeAccepted) serverMessage() {}
func (RequestReceived) serverMessage()   {}

// validator is implemented by payloads with fields that must be present
type validator interface {
	validate() error
}

func (m AcceptChallenge) validate() error   { return requireRequestID(m.RequestID) }
func (m DenyChallenge) validate() error     { return requireRequestID(m.RequestID) }
func (m ChallengeDenied) validate() error   { return requireRequestID(m.RequestID) }
func (m ChallengeAccepted) validate() error { return requireRequestID(m.RequestID) }
func (m RequestReceived) validate() error   { return requireRequestID(m.RequestID) }
func (m ChallengeReceived) validate() error { return requireRequestID(m.RequestID) }
func (m Welcome) validate() error           { return requirePlayerID(m.ID) }
func (m PlayerJoined) validate() error      { return requirePlayerID(m.ID) }
func (m GoodBye) validate() error           { return requirePlayerID(m.ID) }
func (m PlayerChangedName) validate() error { return requirePlayerID(m.ID) }

func (m ReportState) validate() error {
	if m.Kills < 0 {
		return errField("kills", "must not be negative")
	}
	return nil
}

func requireRequestID(id model.RequestID) error {
	if id == "" {
		return errField("request_id", "is required")
	}
	return nil
}

func requirePlayerID(id model.PlayerID) error {
	if id == "" {
		return errField("id", "is required")
	}
	return nil
}
