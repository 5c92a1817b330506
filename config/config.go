// Package config loads bot settings from a YAML file and the environment
// and applies them to a [client.Builder].
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/adamwoolhether/botkit"
	"github.com/adamwoolhether/botkit/client"
)

// TokenEnv overrides the token of a loaded [File] when set.
const TokenEnv = "BOTKIT_TOKEN"

// File mirrors the YAML layout of a bot configuration. Pointer fields
// left unset keep the builder defaults.
type File struct {
	Token         string   `yaml:"token"`
	Account       string   `yaml:"account" validate:"omitempty,oneof=bot user client"`
	Status        string   `yaml:"status" validate:"omitempty,oneof=online idle dnd invisible offline"`
	Idle          bool     `yaml:"idle"`
	Game          *Game    `yaml:"game"`
	AutoReconnect *bool    `yaml:"auto_reconnect"`
	Audio         *bool    `yaml:"audio"`
	ShutdownHook  *bool    `yaml:"shutdown_hook"`
	Intents       []string `yaml:"intents" validate:"dive,intent"`
	APIBaseURL    string   `yaml:"api_base_url" validate:"omitempty,url"`
	Gateway       Gateway  `yaml:"gateway"`
	HTTP          HTTP     `yaml:"http"`
}

type Game struct {
	Type string `yaml:"type" validate:"omitempty,oneof=playing streaming listening watching"`
	Name string `yaml:"name" validate:"required"`
	URL  string `yaml:"url"`
}

// Gateway holds the websocket dial settings.
type Gateway struct {
	ConnectionTimeout time.Duration `yaml:"connection_timeout" validate:"gte=0"`
	Compression       bool          `yaml:"compression"`
	ReadLimit         int64         `yaml:"read_limit" validate:"gte=0"`
}

// HTTP holds the REST client settings. A zero RPS keeps the default throttle.
type HTTP struct {
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	UserAgent string        `yaml:"user_agent"`
	RPS       int           `yaml:"rps" validate:"gte=0"`
	Burst     int           `yaml:"burst" validate:"gte=0"`
}

func (h HTTP) isZero() bool {
	return h == HTTP{}
}

func (g Gateway) isZero() bool {
	return g == Gateway{}
}

var intentNames = map[string]client.GatewayIntent{
	"guilds":                   client.IntentGuilds,
	"guild_members":            client.IntentGuildMembers,
	"guild_moderation":         client.IntentGuildModeration,
	"guild_expressions":        client.IntentGuildExpressions,
	"guild_integrations":       client.IntentGuildIntegrations,
	"guild_webhooks":           client.IntentGuildWebhooks,
	"guild_invites":            client.IntentGuildInvites,
	"guild_voice_states":       client.IntentGuildVoiceStates,
	"guild_presences":          client.IntentGuildPresences,
	"guild_messages":           client.IntentGuildMessages,
	"guild_message_reactions":  client.IntentGuildMessageReactions,
	"guild_message_typing":     client.IntentGuildMessageTyping,
	"direct_messages":          client.IntentDirectMessages,
	"direct_message_reactions": client.IntentDirectMessageReactions,
	"direct_message_typing":    client.IntentDirectMessageTyping,
	"message_content":          client.IntentMessageContent,
	"guild_scheduled_events":   client.IntentGuildScheduledEvents,
	"default":                  client.IntentsDefault,
	"privileged":               client.IntentsPrivileged,
	"all":                      client.IntentsAll,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("intent", func(fl validator.FieldLevel) bool {
		_, ok := intentNames[strings.ToLower(fl.Field().String())]
		return ok
	})

	return v
}

// Load reads the YAML file at path, loads envFiles into the process
// environment without overriding variables already set, and applies
// the [TokenEnv] override. Missing env files are skipped.
func Load(path string, envFiles ...string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := loadEnv(envFiles...); err != nil {
		return nil, err
	}

	if token := os.Getenv(TokenEnv); token != "" {
		f.Token = token
	}

	return f, nil
}

// Parse decodes and validates a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}

	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("validating: %w", err)
	}

	return &f, nil
}

func loadEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading env file %s: %w", file, err)
		}
	}

	return nil
}

// AccountType resolves the account key, defaulting to a bot account.
func (f *File) AccountType() client.AccountType {
	a, _ := client.ParseAccountType(f.Account)
	return a
}

// intents combines the named intents. An empty list reports false so the
// builder default is kept.
func (f *File) intents() (client.GatewayIntent, bool) {
	if len(f.Intents) == 0 {
		return 0, false
	}

	var out client.GatewayIntent
	for _, name := range f.Intents {
		out |= intentNames[strings.ToLower(name)]
	}
	return out, true
}

func (f *File) applyGame(b *client.Builder) {
	if f.Game == nil {
		return
	}

	name := func() string { return f.Game.Name }

	t, _ := client.ParseGameType(f.Game.Type)
	switch t {
	case client.GameStreaming:
		botkit.Streaming(b, f.Game.Name, f.Game.URL)
	case client.GameListening:
		botkit.Listening(b, name)
	case client.GameWatching:
		botkit.Watching(b, name)
	default:
		botkit.Playing(b, name)
	}
}

// Apply configures b with every value set in f and returns b.
func (f *File) Apply(b *client.Builder) *client.Builder {
	if f.Token != "" {
		botkit.Token(b, func() string { return f.Token })
	}
	if f.Status != "" {
		botkit.Status(b, func() client.OnlineStatus { return client.ParseOnlineStatus(f.Status) })
	}
	botkit.Idle(b, f.Idle)

	f.applyGame(b)
	if f.AutoReconnect != nil {
		botkit.AutoReconnect(b, *f.AutoReconnect)
	}
	if f.Audio != nil {
		botkit.Audio(b, *f.Audio)
	}
	if f.ShutdownHook != nil {
		botkit.ShutdownHook(b, *f.ShutdownHook)
	}
	if intents, ok := f.intents(); ok {
		botkit.Intents(b, func() client.GatewayIntent { return intents })
	}
	if f.APIBaseURL != "" {
		b.SetAPIBaseURL(f.APIBaseURL)
	}

	if !f.Gateway.isZero() {
		botkit.WebsocketSettings(b, func(ws *client.WebSocketFactory) {
			if f.Gateway.ConnectionTimeout > 0 {
				ws.ConnectionTimeout = f.Gateway.ConnectionTimeout
			}
			if f.Gateway.ReadLimit > 0 {
				ws.ReadLimit = f.Gateway.ReadLimit
			}
			ws.EnableCompression = f.Gateway.Compression
		})
	}

	if !f.HTTP.isZero() {
		botkit.HTTPSettings(b, func(hb *client.HTTPClientBuilder) {
			if f.HTTP.Timeout > 0 {
				hb.Timeout = f.HTTP.Timeout
			}
			if f.HTTP.UserAgent != "" {
				hb.UserAgent = f.HTTP.UserAgent
			}
			if f.HTTP.RPS > 0 {
				burst := f.HTTP.Burst
				if burst == 0 {
					burst = f.HTTP.RPS
				}
				hb.SetThrottle(f.HTTP.RPS, burst)
			}
		})
	}

	return b
}
