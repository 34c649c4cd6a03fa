package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crawl-backend/constants"
	"crawl-backend/models"
)

func TestDecodeMessages(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want ClientMessage
	}{
		{"join", `{"type":"join_room"}`, JoinRoom{}},
		{"join with token", `{"type":"join_room","resumeToken":" abc "}`, JoinRoom{ResumeToken: "abc"}},
		{"player info", `{"type":"set_player_info","displayName":"  Ann ","skinRef":"skin-3"}`, SetPlayerInfo{DisplayName: "Ann", SkinRef: "skin-3"}},
		{"player info alias", `{"type":"setPlayerInfo","displayName":""}`, SetPlayerInfo{}},
		{"direction", `{"type":"change_direction","direction":{"x":0,"y":2}}`, ChangeDirection{Direction: models.Vec{X: 0, Y: 1}}},
		{"boost start", `{"type":"boostStart"}`, BoostStart{}},
		{"boost stop", `{"type":"boost_stop"}`, BoostStop{}},
		{"elimination hint", `{"type":"player_eliminated","eliminatedBy":"p2"}`, EliminationHint{EliminatedBy: "p2"}},
		{"eat hint", `{"type":"eat_player","eatenPlayer":"p3"}`, EatHint{EatenPlayer: "p3"}},
		{"pong", `{"type":"pong","t":42}`, Pong{T: 42}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(JSON, []byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	malformed := []string{
		``,
		`not json`,
		`{"displayName":"no type"}`,
		`{"type":"set_player_info"}`,
		`{"type":"change_direction"}`,
		`{"type":"change_direction","direction":"north"}`,
		`{"type":"player_eliminated"}`,
		`{"type":"eat_player","eatenPlayer":""}`,
	}
	for _, raw := range malformed {
		_, err := Decode(JSON, []byte(raw))
		assert.ErrorIs(t, err, ErrMalformed, raw)
	}

	_, err := Decode(JSON, []byte(`{"type":"teleport"}`))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestDecodeTruncatesLongFields(t *testing.T) {
	name := strings.Repeat("é", MaxDisplayName+10)
	raw, err := JSON.Marshal(map[string]any{"type": constants.MSG_SET_PLAYER_INFO, "displayName": name})
	require.NoError(t, err)

	msg, err := Decode(JSON, raw)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", MaxDisplayName), msg.(SetPlayerInfo).DisplayName)
}

func TestMsgPackDecodesSameMessages(t *testing.T) {
	raw, err := MsgPack.Marshal(map[string]any{
		"type":      constants.MSG_CHANGE_DIRECTION,
		"direction": map[string]float64{"x": -3, "y": 0},
	})
	require.NoError(t, err)

	msg, err := Decode(MsgPack, raw)
	require.NoError(t, err)
	assert.Equal(t, ChangeDirection{Direction: models.Vec{X: -1, Y: 0}}, msg)
}

func TestCodecsCarrySameSnapshot(t *testing.T) {
	snap := UpdateEntities{
		Type:   constants.MSG_UPDATE_ENTITIES,
		RoomID: "r1",
		Tick:   7,
		Players: map[string]models.Player{
			"p1": {ID: "p1", Position: models.Vec{X: 1, Y: 2}, Segments: []models.Segment{{Vec: models.Vec{X: 3, Y: 4}, Color: "#fff"}}, ItemsEaten: 5},
		},
		Items:           []models.Item{{ID: "item-1", Position: models.Vec{X: 9, Y: 9}, Value: 1}},
		Leaderboard:     []models.LeaderboardEntry{{PlayerID: "p1", DisplayName: "Ann", Score: 5}},
		ServerTimestamp: 1700000000000,
	}

	for _, codec := range []Codec{JSON, MsgPack} {
		t.Run(codec.Name(), func(t *testing.T) {
			raw, err := codec.Marshal(snap)
			require.NoError(t, err)

			var got UpdateEntities
			require.NoError(t, codec.Unmarshal(raw, &got))
			assert.Equal(t, snap.Tick, got.Tick)
			assert.Equal(t, snap.Items[0].ID, got.Items[0].ID)
			assert.Equal(t, snap.Players["p1"].Segments, got.Players["p1"].Segments)
			assert.Equal(t, 5, got.Players["p1"].ItemsEaten)
			assert.Equal(t, snap.Leaderboard, got.Leaderboard)
		})
	}
	assert.True(t, CodecFor(constants.CODEC_MSGPACK).Binary())
	assert.False(t, CodecFor("anything").Binary())
}
