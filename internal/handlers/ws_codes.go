// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the auction handlers. These
// give clients more specific closure reasons than the standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Guest token was invalid and could not be reissued.
	InvalidRoomCodeError  = 3003 // Target room code does not exist.
)
