package botkit_test

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/adamwoolhether/botkit"
	"github.com/adamwoolhether/botkit/client"
	"github.com/adamwoolhether/botkit/internal/gatewaytest"
)

func ExampleNew() {
	srv := gatewaytest.New("token")
	defer srv.Close()

	c, err := botkit.New(client.AccountBot, func(b *client.Builder) {
		botkit.Token(b, func() string { return "token" })
		botkit.Watching(b, func() string { return "the logs" })
		botkit.Logger(b, func() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) })
		botkit.ShutdownHook(b, false)
		botkit.HTTPSettings(b, func(hb *client.HTTPClientBuilder) {
			hb.Timeout = 10 * time.Second
		})
		b.SetAPIBaseURL(srv.APIURL())
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer func() {
		c.Shutdown()
		<-c.Done()
	}()

	fmt.Println(c.SelfUser().Username, c.Presence().Game().Name)
	// Output: botkit-test the logs
}

// pingBuilder carries the bot's own settings next to the client builder.
type pingBuilder struct {
	*client.Builder
	Prefix string
}

func ExampleBuild() {
	b := &pingBuilder{Builder: client.NewBuilder(client.AccountBot), Prefix: "!"}

	// Adapters return *pingBuilder, so its fields stay reachable in a chain.
	prefix := botkit.Idle(botkit.Audio(b, false), true).Prefix

	_, err := botkit.Build(b, func(b *pingBuilder) {
		botkit.ShutdownHook(b, false)
	})

	fmt.Println(prefix, err != nil)
	// Output: ! true
}
