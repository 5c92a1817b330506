package client

import "time"

// SetInitialReconnectDelay overrides the first reconnect delay so
// backoff can be observed without waiting whole seconds.
func SetInitialReconnectDelay(b *Builder, d time.Duration) *Builder {
	b.initialReconnectDelay = d
	return b
}
