package redis

import (
	"fmt"

	"github.com/mcoot/typerace/internal/model"
)

// Channel prefix for all mirrored events
const channelPrefix = "typerace"

// RoomChannel returns the pub/sub channel carrying a room's events
func RoomChannel(code model.RoomCode) string {
	return fmt.Sprintf("%s:room:%s", channelPrefix, code)
}

// AllRoomsPattern matches every room channel, for PSUBSCRIBE
func AllRoomsPattern() string {
	return fmt.Sprintf("%s:room:*", channelPrefix)
}
