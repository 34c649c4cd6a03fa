package constants

import "time"

const (
	// World constants
	WORLD_WIDTH  = 3000.0
	WORLD_HEIGHT = 3000.0
	TICK_RATE    = 50 * time.Millisecond
	SPAWN_MARGIN = 100.0

	// Room constants
	ROOM_CAPACITY    = 20
	MAX_ROOMS        = 64
	ITEM_TARGET      = 50
	LEADERBOARD_SIZE = 10
	// Live top scores are pushed to the global leaderboard every 10s at 20 Hz.
	LEADERBOARD_SUBMIT_TICKS = 200
	RECONNECT_GRACE          = 10 * time.Second

	// Movement
	BASE_SPEED        = 5.0
	BOOST_MULTIPLIER  = 2.0
	BOOST_DRAIN_TICKS = 4
	BOOST_MIN_ITEMS   = 5

	// Growth curve, shared with the client for hitbox parity
	BASE_RADIUS      = 10.0
	GROWTH_THRESHOLD = 40
	GROWTH_RATE      = 0.02

	// Items
	ITEM_RADIUS        = 5.0
	ITEM_PICKUP_MARGIN = 5.0
	ITEM_VALUE_COMMON  = 1
	ITEM_VALUE_RARE    = 3
	ITEM_RARE_CHANCE   = 0.1

	// Edge policies
	EDGE_CLAMP = "clamp"
	EDGE_WRAP  = "wrap"

	// Codecs
	CODEC_JSON    = "json"
	CODEC_MSGPACK = "msgpack"

	// Client -> server message types
	MSG_JOIN_ROOM         = "join_room"
	MSG_SET_PLAYER_INFO   = "set_player_info"
	MSG_CHANGE_DIRECTION  = "change_direction"
	MSG_BOOST_START       = "boost_start"
	MSG_BOOST_STOP        = "boost_stop"
	MSG_PLAYER_ELIMINATED = "player_eliminated"
	MSG_EAT_PLAYER        = "eat_player"
	MSG_PONG              = "pong"

	// Server -> client message types
	MSG_CONNECTED       = "connected"
	MSG_JOINED_ROOM     = "joined_room"
	MSG_UPDATE_ENTITIES = "update_entities"
	MSG_SET_SPECTATOR   = "set_spectator"
	MSG_ITEM_COLLECTED  = "item_collected"
	MSG_PING            = "ping"
	MSG_ERROR           = "error"

	// Error codes
	ERR_MALFORMED         = "MALFORMED_MESSAGE"
	ERR_NO_ROOM_AVAILABLE = "NO_ROOM_AVAILABLE"
	ERR_NOT_IN_ROOM       = "NOT_IN_ROOM"
	ERR_SESSION_EXPIRED   = "SESSION_EXPIRED"
)

// Elimination reasons
const (
	REASON_HEAD_ON = "head_on"
	REASON_BODY    = "body"
)

// Player colors palette
var PLAYER_COLORS = []string{
	"#e74c3c", "#3498db", "#2ecc71", "#f39c12", "#9b59b6",
	"#1abc9c", "#e67e22", "#e91e63", "#00bcd4", "#8bc34a",
}

var ITEM_COLORS = []string{
	"#ff5722", "#ffeb3b", "#4caf50", "#03a9f4", "#9c27b0",
}
