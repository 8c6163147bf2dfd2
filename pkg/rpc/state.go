package rpc

// State is the lifecycle position of a Client.
//
//	Disconnected -> Connecting -> Connected -> Closing -> Disconnected
//	Connecting -> Disconnected (connect failed)
//	Connected  -> Disconnected (transport lost)
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}
