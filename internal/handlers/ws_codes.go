// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the room subscription handler.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Caller identity could not be resolved before the upgrade.
	InvalidRoomCodeError  = 3003 // Room code in the WS URL does not resolve to a live room.
)
