// Package client is a chat platform client: a REST client built on
// [net/http] plus a gateway session built on gorilla/websocket that
// keeps itself connected and dispatches events to listeners.
//
// # Building a Client
//
// Configure a [Builder] and call [Builder.BuildAsync]. The token is
// verified synchronously; the gateway connects in the background:
//
//	c, err := client.NewBuilder(client.AccountBot).
//		SetToken(os.Getenv("BOT_TOKEN")).
//		SetGame(client.Watching("the logs")).
//		AddEventListener(myListener).
//		BuildAsync()
//	if err != nil { ... }
//	err = c.AwaitReady(ctx)
//
// Transport settings are carried by two helper values registered on the
// builder: [WebSocketFactory] for the gateway socket and
// [HTTPClientBuilder] for REST calls, which includes a token-bucket
// throttle from the [github.com/adamwoolhether/botkit/client/throttle]
// package.
//
// # Events
//
// Listeners implement [EventListener] and receive every [Event] in
// registration order: [ReadyEvent], [DispatchEvent] for raw gateway
// dispatches, [StatusChangeEvent] on lifecycle transitions, and the
// disconnect, reconnect and shutdown events. A custom [EventManager]
// can be installed with [Builder.SetEventManager].
//
// # Making Requests
//
// Resolve a route with [Client.Endpoint], construct a [Request], and
// execute it with [Client.Do], which adds the Authorization header:
//
//	u := c.Endpoint("/channels/" + channelID + "/messages")
//	req, err := client.Request(ctx, u, http.MethodPost,
//		client.WithPayload(map[string]string{"content": "pong"}),
//	)
//	err = c.Do(req, http.StatusOK, client.WithDestination(&msg))
package client
