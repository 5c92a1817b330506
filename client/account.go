package client

import "strings"

// AccountType discriminates the kind of account a [Builder] logs in with.
type AccountType int

const (
	// AccountBot logs in with a bot token.
	AccountBot AccountType = iota
	// AccountUser logs in with a user token.
	AccountUser
)

const botTokenPrefix = "Bot "

func (a AccountType) String() string {
	switch a {
	case AccountBot:
		return "bot"
	case AccountUser:
		return "user"
	default:
		return "unknown"
	}
}

// ParseAccountType maps "bot" or "user" to an AccountType.
func ParseAccountType(s string) (AccountType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bot", "":
		return AccountBot, true
	case "user", "client":
		return AccountUser, true
	default:
		return AccountBot, false
	}
}

// authorization renders the Authorization header value for token.
func (a AccountType) authorization(token string) string {
	token = strings.TrimPrefix(token, botTokenPrefix)
	if a == AccountBot {
		return botTokenPrefix + token
	}

	return token
}

// gatewayRoute is the REST route that resolves the gateway URL.
func (a AccountType) gatewayRoute() string {
	if a == AccountBot {
		return "/gateway/bot"
	}

	return "/gateway"
}
