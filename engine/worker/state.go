package worker

// State is a worker loop phase.
type State string

const (
	StateConnecting   State = "CONNECTING"
	StateReady        State = "READY"
	StatePolling      State = "POLLING"
	StateProcessing   State = "PROCESSING"
	StateReconnecting State = "RECONNECTING"
	StateStopped      State = "STOPPED"
)

func (s State) String() string {
	return string(s)
}
