// Package botkit is a fluent configuration layer over [client.Builder].
//
// [New] creates a builder, hands it to a configuration function and starts
// an asynchronous build:
//
//	c, err := botkit.New(client.AccountBot, func(b *client.Builder) {
//		botkit.Token(b, func() string { return os.Getenv("BOT_TOKEN") })
//		botkit.Watching(b, func() string { return "the logs" })
//		botkit.HTTPSettings(b, func(hb *client.HTTPClientBuilder) {
//			hb.Timeout = 10 * time.Second
//		})
//		botkit.Add(b, myListener)
//	})
//
// Every adapter forwards to exactly one builder setter and returns the
// builder it was given, typed as the caller's own type. Types embedding
// *client.Builder keep their static type through a chain.
//
// The package holds no state and adds no behavior of its own: errors come
// from the client package unchanged.
package botkit

import (
	"github.com/adamwoolhether/botkit/client"
)

// AsyncBuilder is satisfied by *client.Builder and by any type embedding it.
type AsyncBuilder interface {
	BuildAsync() (*client.Client, error)
}

// New constructs a [client.Builder] for accountType, applies init to it and
// returns the result of [client.Builder.BuildAsync]. The token must be set
// by init; BuildAsync rejects a builder without one.
func New(accountType client.AccountType, init func(*client.Builder)) (*client.Client, error) {
	return Build(client.NewBuilder(accountType), init)
}

// Build applies init to b and then builds it asynchronously, exactly once.
// It is the generic form of [New] for caller-defined builder types.
func Build[B AsyncBuilder](b B, init func(B)) (*client.Client, error) {
	if init != nil {
		init(b)
	}

	return b.BuildAsync()
}
