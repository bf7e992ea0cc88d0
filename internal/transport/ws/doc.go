// Package ws is the WebSocket transport: it upgrades HTTP connections,
// pumps frames between sockets and the session handler, and fans room
// broadcasts out through one hub goroutine per room.
package ws
