package session

// State represents the liveness of a single chat session. The only legal
// transitions are Connecting to Connected, Connecting to Disconnected (failed
// connect), and Connected to Disconnected. A Disconnected session never goes
// back; callers create a new Session to reconnect.
type State int32

const (
	StateConnecting   State = iota // Session created, transport not yet established
	StateConnected                 // Transport established, receive loop running
	StateDisconnected              // Session over: closed, failed, or peer gone
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}
