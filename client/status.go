package client

// Status is the lifecycle state of a [Client].
type Status int32

const (
	StatusInitializing Status = iota
	StatusLoggingIn
	StatusConnectingToWebsocket
	StatusIdentifyingSession
	StatusAwaitingLoginConfirmation
	StatusConnected
	StatusDisconnected
	StatusWaitingToReconnect
	StatusAttemptingToReconnect
	StatusShuttingDown
	StatusShutdown
	StatusFailedToLogin
)

var statusNames = [...]string{
	StatusInitializing:              "initializing",
	StatusLoggingIn:                 "logging_in",
	StatusConnectingToWebsocket:     "connecting_to_websocket",
	StatusIdentifyingSession:        "identifying_session",
	StatusAwaitingLoginConfirmation: "awaiting_login_confirmation",
	StatusConnected:                 "connected",
	StatusDisconnected:              "disconnected",
	StatusWaitingToReconnect:        "waiting_to_reconnect",
	StatusAttemptingToReconnect:     "attempting_to_reconnect",
	StatusShuttingDown:              "shutting_down",
	StatusShutdown:                  "shutdown",
	StatusFailedToLogin:             "failed_to_login",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}

	return statusNames[s]
}
