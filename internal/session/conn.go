package session

// Conn is one live client connection attached to a session slot. Send must
// not block; Close ends the connection with a normal closure.
type Conn interface {
	Send([]byte) error
	Close() error
}
