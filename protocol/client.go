package protocol

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"crawl-backend/constants"
	"crawl-backend/models"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

const (
	MaxDisplayName = 24
	MaxSkinRef     = 64
)

// ClientMessage is the closed set of messages a client may send.
type ClientMessage interface {
	ClientMessageType() string
}

type JoinRoom struct {
	ResumeToken string
}

type SetPlayerInfo struct {
	DisplayName string
	SkinRef     string
}

type ChangeDirection struct {
	Direction models.Vec
}

type BoostStart struct{}

type BoostStop struct{}

// EliminationHint is a client claim that it was eliminated by another player.
type EliminationHint struct {
	EliminatedBy string
}

// EatHint is a client claim that it eliminated another player.
type EatHint struct {
	EatenPlayer string
}

type Pong struct {
	T int64
}

func (JoinRoom) ClientMessageType() string        { return constants.MSG_JOIN_ROOM }
func (SetPlayerInfo) ClientMessageType() string   { return constants.MSG_SET_PLAYER_INFO }
func (ChangeDirection) ClientMessageType() string { return constants.MSG_CHANGE_DIRECTION }
func (BoostStart) ClientMessageType() string      { return constants.MSG_BOOST_START }
func (BoostStop) ClientMessageType() string       { return constants.MSG_BOOST_STOP }
func (EliminationHint) ClientMessageType() string { return constants.MSG_PLAYER_ELIMINATED }
func (EatHint) ClientMessageType() string         { return constants.MSG_EAT_PLAYER }
func (Pong) ClientMessageType() string            { return constants.MSG_PONG }

// clientFrame is the union of every client field on the wire.
type clientFrame struct {
	Type         string      `json:"type"`
	ResumeToken  string      `json:"resumeToken,omitempty"`
	DisplayName  *string     `json:"displayName,omitempty"`
	SkinRef      string      `json:"skinRef,omitempty"`
	Direction    *models.Vec `json:"direction,omitempty"`
	EliminatedBy string      `json:"eliminatedBy,omitempty"`
	EatenPlayer  string      `json:"eatenPlayer,omitempty"`
	T            int64       `json:"t,omitempty"`
}

// Older clients send the camelCase event names.
var typeAliases = map[string]string{
	"setPlayerInfo":   constants.MSG_SET_PLAYER_INFO,
	"changeDirection": constants.MSG_CHANGE_DIRECTION,
	"boostStart":      constants.MSG_BOOST_START,
	"boostStop":       constants.MSG_BOOST_STOP,
}

// Decode parses and validates one inbound frame.
func Decode(codec Codec, data []byte) (ClientMessage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformed)
	}
	var f clientFrame
	if err := codec.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	msgType := f.Type
	if alias, ok := typeAliases[msgType]; ok {
		msgType = alias
	}

	switch msgType {
	case constants.MSG_JOIN_ROOM:
		return JoinRoom{ResumeToken: strings.TrimSpace(f.ResumeToken)}, nil
	case constants.MSG_SET_PLAYER_INFO:
		if f.DisplayName == nil {
			return nil, fmt.Errorf("%w: displayName missing", ErrMalformed)
		}
		return SetPlayerInfo{
			DisplayName: truncate(strings.TrimSpace(*f.DisplayName), MaxDisplayName),
			SkinRef:     truncate(strings.TrimSpace(f.SkinRef), MaxSkinRef),
		}, nil
	case constants.MSG_CHANGE_DIRECTION:
		if f.Direction == nil {
			return nil, fmt.Errorf("%w: direction missing", ErrMalformed)
		}
		if !f.Direction.IsFinite() {
			return nil, fmt.Errorf("%w: direction not finite", ErrMalformed)
		}
		return ChangeDirection{Direction: f.Direction.Normalized()}, nil
	case constants.MSG_BOOST_START:
		return BoostStart{}, nil
	case constants.MSG_BOOST_STOP:
		return BoostStop{}, nil
	case constants.MSG_PLAYER_ELIMINATED:
		if f.EliminatedBy == "" {
			return nil, fmt.Errorf("%w: eliminatedBy missing", ErrMalformed)
		}
		return EliminationHint{EliminatedBy: f.EliminatedBy}, nil
	case constants.MSG_EAT_PLAYER:
		if f.EatenPlayer == "" {
			return nil, fmt.Errorf("%w: eatenPlayer missing", ErrMalformed)
		}
		return EatHint{EatenPlayer: f.EatenPlayer}, nil
	case constants.MSG_PONG:
		return Pong{T: f.T}, nil
	case "":
		return nil, fmt.Errorf("%w: type missing", ErrMalformed)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, f.Type)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit])
}
