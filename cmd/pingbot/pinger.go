package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/adamwoolhether/botkit/client"
)

const (
	pingCommand = "!ping"
	pongReply   = "pong"
)

type messageCreate struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	Author    struct {
		ID  string `json:"id"`
		Bot bool   `json:"bot"`
	} `json:"author"`
}

// pinger replies to ping messages and logs every event it sees. Replies
// are sent off the gateway goroutine.
type pinger struct {
	ctx    context.Context
	logger *slog.Logger
	wg     sync.WaitGroup
}

func newPinger(ctx context.Context, logger *slog.Logger) *pinger {
	return &pinger{ctx: ctx, logger: logger}
}

func (p *pinger) OnEvent(e client.Event) {
	switch ev := e.(type) {
	case *client.ReadyEvent:
		p.logger.Info("ready", "session_id", ev.SessionID, "user", ev.Client().SelfUser().Username)
	case *client.StatusChangeEvent:
		p.logger.Debug("status", "old", ev.Old.String(), "new", ev.New.String())
	case *client.DisconnectEvent:
		p.logger.Warn("disconnected", "error", ev.Err)
	case *client.ShutdownEvent:
		p.logger.Info("shutdown", "error", ev.Err)
	case *client.DispatchEvent:
		p.logger.Debug("dispatch", "type", ev.Type, "seq", ev.ResponseNumber())
		if ev.Type == "MESSAGE_CREATE" {
			p.onMessage(ev)
		}
	default:
		p.logger.Debug("event", "type", fmt.Sprintf("%T", e))
	}
}

func (p *pinger) onMessage(ev *client.DispatchEvent) {
	var msg messageCreate
	if err := ev.Decode(&msg); err != nil {
		p.logger.Error("decoding message", "error", err)
		return
	}

	if msg.Author.Bot || strings.TrimSpace(msg.Content) != pingCommand {
		return
	}

	c := ev.Client()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if err := reply(p.ctx, c, msg.ChannelID, pongReply); err != nil {
			p.logger.Error("replying to ping", "channel_id", msg.ChannelID, "error", err)
		}
	}()
}

// wait blocks until every pending reply has finished.
func (p *pinger) wait() {
	p.wg.Wait()
}

func reply(ctx context.Context, c *client.Client, channelID, content string) error {
	req, err := c.Request(ctx, c.Endpoint("/channels/"+channelID+"/messages"), http.MethodPost,
		client.WithPayload(map[string]string{"content": content}),
	)
	if err != nil {
		return err
	}

	return c.Do(req, http.StatusOK, client.WithRoute("/channels/{id}/messages"))
}
