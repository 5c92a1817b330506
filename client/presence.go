package client

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"
)

// OnlineStatus is the visible availability of the logged in account.
type OnlineStatus string

const (
	Online        OnlineStatus = "online"
	Idle          OnlineStatus = "idle"
	DoNotDisturb  OnlineStatus = "dnd"
	Invisible     OnlineStatus = "invisible"
	Offline       OnlineStatus = "offline"
	UnknownStatus OnlineStatus = ""
)

// ParseOnlineStatus maps the wire key to an OnlineStatus. Unknown keys
// yield UnknownStatus.
func ParseOnlineStatus(key string) OnlineStatus {
	switch s := OnlineStatus(strings.ToLower(strings.TrimSpace(key))); s {
	case Online, Idle, DoNotDisturb, Invisible, Offline:
		return s
	default:
		return UnknownStatus
	}
}

// GameType is the activity kind shown next to the account name.
type GameType int

const (
	GamePlaying GameType = iota
	GameStreaming
	GameListening
	GameWatching
)

func (t GameType) String() string {
	switch t {
	case GamePlaying:
		return "playing"
	case GameStreaming:
		return "streaming"
	case GameListening:
		return "listening"
	case GameWatching:
		return "watching"
	default:
		return "unknown"
	}
}

// ParseGameType maps "playing", "streaming", "listening" or "watching" to a GameType.
func ParseGameType(s string) (GameType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "playing", "":
		return GamePlaying, true
	case "streaming":
		return GameStreaming, true
	case "listening":
		return GameListening, true
	case "watching":
		return GameWatching, true
	default:
		return GamePlaying, false
	}
}

// Game is the activity displayed in the account's presence.
type Game struct {
	Name string   `json:"name"`
	Type GameType `json:"type"`
	URL  string   `json:"url,omitempty"`
}

var streamingURL = regexp.MustCompile(`^https?://(www\.)?(twitch\.tv|youtube\.com)/.+`)

// IsValidStreamingURL reports whether url is accepted for a streaming activity.
func IsValidStreamingURL(url string) bool {
	return url != "" && streamingURL.MatchString(url)
}

func Playing(name string) *Game {
	return &Game{Name: name, Type: GamePlaying}
}

func Listening(name string) *Game {
	return &Game{Name: name, Type: GameListening}
}

func Watching(name string) *Game {
	return &Game{Name: name, Type: GameWatching}
}

// Streaming creates a streaming activity. An invalid url downgrades the
// activity to [GamePlaying], mirroring what the platform would display.
func Streaming(name, url string) *Game {
	if !IsValidStreamingURL(url) {
		return Playing(name)
	}

	return &Game{Name: name, Type: GameStreaming, URL: url}
}

// presenceUpdate is the payload of gateway op 3 and of the identify presence.
type presenceUpdate struct {
	Since      *int64  `json:"since"`
	Activities []*Game `json:"activities"`
	Status     string  `json:"status"`
	AFK        bool    `json:"afk"`
}

// Presence holds the live presence of a [Client]. Setters push the
// change to the gateway when a session is connected.
type Presence struct {
	mu        sync.Mutex
	status    OnlineStatus
	game      *Game
	idle      bool
	idleSince time.Time
	client    *Client
}

func newPresence(c *Client, status OnlineStatus, game *Game, idle bool) *Presence {
	if status == UnknownStatus {
		status = Online
	}

	p := &Presence{
		status: status,
		game:   game,
		idle:   idle,
		client: c,
	}
	if idle {
		p.idleSince = time.Now()
	}

	return p
}

func (p *Presence) Status() OnlineStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Presence) Game() *Game {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.game
}

func (p *Presence) Idle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idle
}

// SetStatus changes the online status. UnknownStatus keeps the current status.
func (p *Presence) SetStatus(ctx context.Context, status OnlineStatus) error {
	return p.SetPresence(ctx, status, p.Game(), p.Idle())
}

// SetGame changes the displayed activity; nil clears it.
func (p *Presence) SetGame(ctx context.Context, game *Game) error {
	return p.SetPresence(ctx, p.Status(), game, p.Idle())
}

func (p *Presence) SetIdle(ctx context.Context, idle bool) error {
	return p.SetPresence(ctx, p.Status(), p.Game(), idle)
}

// SetPresence updates all presence fields at once and sends a single update.
func (p *Presence) SetPresence(ctx context.Context, status OnlineStatus, game *Game, idle bool) error {
	p.mu.Lock()
	if status != UnknownStatus {
		p.status = status
	}
	p.game = game
	if idle && !p.idle {
		p.idleSince = time.Now()
	}
	p.idle = idle
	update := p.payloadLocked()
	p.mu.Unlock()

	if p.client == nil || p.client.Status() != StatusConnected {
		return nil
	}

	return p.client.send(ctx, opPresenceUpdate, update)
}

func (p *Presence) payload() presenceUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.payloadLocked()
}

func (p *Presence) payloadLocked() presenceUpdate {
	update := presenceUpdate{
		Activities: []*Game{},
		Status:     string(p.status),
		AFK:        p.idle,
	}
	if p.game != nil {
		update.Activities = append(update.Activities, p.game)
	}
	if p.idle {
		since := p.idleSince.UnixMilli()
		update.Since = &since
	}

	return update
}
