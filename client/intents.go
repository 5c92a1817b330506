package client

// GatewayIntent is a bit set selecting which dispatches the gateway sends.
type GatewayIntent int64

const (
	IntentGuilds                 GatewayIntent = 1 << 0
	IntentGuildMembers           GatewayIntent = 1 << 1
	IntentGuildModeration        GatewayIntent = 1 << 2
	IntentGuildExpressions       GatewayIntent = 1 << 3
	IntentGuildIntegrations      GatewayIntent = 1 << 4
	IntentGuildWebhooks          GatewayIntent = 1 << 5
	IntentGuildInvites           GatewayIntent = 1 << 6
	IntentGuildVoiceStates       GatewayIntent = 1 << 7
	IntentGuildPresences         GatewayIntent = 1 << 8
	IntentGuildMessages          GatewayIntent = 1 << 9
	IntentGuildMessageReactions  GatewayIntent = 1 << 10
	IntentGuildMessageTyping     GatewayIntent = 1 << 11
	IntentDirectMessages         GatewayIntent = 1 << 12
	IntentDirectMessageReactions GatewayIntent = 1 << 13
	IntentDirectMessageTyping    GatewayIntent = 1 << 14
	IntentMessageContent         GatewayIntent = 1 << 15
	IntentGuildScheduledEvents   GatewayIntent = 1 << 16

	// IntentsPrivileged require approval in the developer portal.
	IntentsPrivileged = IntentGuildMembers | IntentGuildPresences | IntentMessageContent
	// IntentsAll selects every intent above.
	IntentsAll = IntentGuildScheduledEvents<<1 - 1
	// IntentsDefault selects every intent that needs no approval.
	IntentsDefault = IntentsAll &^ IntentsPrivileged
)

// Intents combines intents into one bit set.
func Intents(intents ...GatewayIntent) GatewayIntent {
	var out GatewayIntent
	for _, i := range intents {
		out |= i
	}
	return out
}

// Has reports whether every bit of other is set.
func (i GatewayIntent) Has(other GatewayIntent) bool {
	return i&other == other
}
