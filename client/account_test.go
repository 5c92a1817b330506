package client

import "testing"

func TestAccountType_Authorization(t *testing.T) {
	testCases := map[string]struct {
		account AccountType
		token   string
		exp     string
	}{
		"botRaw":        {account: AccountBot, token: "abc", exp: "Bot abc"},
		"botPrefixed":   {account: AccountBot, token: "Bot abc", exp: "Bot abc"},
		"userRaw":       {account: AccountUser, token: "abc", exp: "abc"},
		"userPrefixed":  {account: AccountUser, token: "Bot abc", exp: "abc"},
		"unknownIsUser": {account: AccountType(9), token: "abc", exp: "abc"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			if got := tc.account.authorization(tc.token); got != tc.exp {
				t.Errorf("exp %q, got %q", tc.exp, got)
			}
		})
	}
}

func TestAccountType_GatewayRoute(t *testing.T) {
	if got := AccountBot.gatewayRoute(); got != "/gateway/bot" {
		t.Errorf("bot: got %q", got)
	}
	if got := AccountUser.gatewayRoute(); got != "/gateway" {
		t.Errorf("user: got %q", got)
	}
}

func TestParseAccountType(t *testing.T) {
	testCases := map[string]struct {
		exp AccountType
		ok  bool
	}{
		"bot":     {exp: AccountBot, ok: true},
		"":        {exp: AccountBot, ok: true},
		"USER":    {exp: AccountUser, ok: true},
		"client":  {exp: AccountUser, ok: true},
		"webhook": {exp: AccountBot, ok: false},
	}

	for in, tc := range testCases {
		got, ok := ParseAccountType(in)
		if got != tc.exp || ok != tc.ok {
			t.Errorf("ParseAccountType(%q): exp (%v, %v), got (%v, %v)", in, tc.exp, tc.ok, got, ok)
		}
	}
}

func TestCloseError(t *testing.T) {
	testCases := map[int]struct {
		fatal      bool
		invalidate bool
	}{
		closeNormal:               {invalidate: true},
		closeGoingAway:            {invalidate: true},
		closeUnknownError:         {},
		closeAuthenticationFailed: {fatal: true},
		closeInvalidSeq:           {invalidate: true},
		closeSessionTimedOut:      {invalidate: true},
		closeInvalidShard:         {fatal: true},
		closeShardingRequired:     {fatal: true},
		closeInvalidAPIVersion:    {fatal: true},
		closeInvalidIntents:       {fatal: true},
		closeDisallowedIntents:    {fatal: true},
		4008:                      {},
	}

	for code, tc := range testCases {
		err := &CloseError{Code: code}
		if err.Fatal() != tc.fatal {
			t.Errorf("%d: exp fatal %v", code, tc.fatal)
		}
		if err.invalidatesSession() != tc.invalidate {
			t.Errorf("%d: exp invalidate %v", code, tc.invalidate)
		}
	}
}

func TestStatus_String(t *testing.T) {
	for s := StatusInitializing; s <= StatusFailedToLogin; s++ {
		if s.String() == "unknown" || s.String() == "" {
			t.Errorf("status %d has no name", s)
		}
	}
	if Status(-1).String() != "unknown" || Status(99).String() != "unknown" {
		t.Error("exp unknown for out of range statuses")
	}
}

func TestIntents(t *testing.T) {
	combined := Intents(IntentGuilds, IntentGuildMessages, IntentMessageContent)

	if !combined.Has(IntentGuilds | IntentGuildMessages) {
		t.Error("exp combined intents to contain guilds and guild messages")
	}
	if combined.Has(IntentGuildMembers) {
		t.Error("unexpected guild members intent")
	}
	if IntentsDefault.Has(IntentsPrivileged) || IntentsDefault&IntentsPrivileged != 0 {
		t.Error("default intents must exclude privileged ones")
	}
	if IntentsAll != IntentsDefault|IntentsPrivileged {
		t.Errorf("exp all = default | privileged, got %b", IntentsAll)
	}
	if Intents() != 0 {
		t.Error("exp no intents from an empty list")
	}
}

func TestGatewayEndpoint(t *testing.T) {
	c := &Client{gatewayURL: "wss://gateway.example"}

	got, err := c.gatewayEndpoint()
	if err != nil {
		t.Fatalf("exp nil err, got: %v", err)
	}
	if got != "wss://gateway.example?encoding=json&v=10" {
		t.Errorf("unexpected endpoint %q", got)
	}

	c.sessionID = "s"
	c.resumeURL = "wss://resume.example"
	got, _ = c.gatewayEndpoint()
	if got != "wss://resume.example?encoding=json&v=10" {
		t.Errorf("exp resume endpoint, got %q", got)
	}
}
