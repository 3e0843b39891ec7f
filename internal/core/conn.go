package core

// Frame is a marshaled event ready for the wire.
type Frame []byte

// Conn abstracts the outbound half of a member's transport.
// Owned by the adapter; the adapter must Close() it.
// Both methods must never block: rooms call them under their lock.
type Conn interface {
	TrySend(Frame) error
	Close()
}
