package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandlerFunc processes a single update.
type HandlerFunc func(ctx context.Context, b *bot.Bot, upd *models.Update)

type queued struct {
	ctx context.Context
	upd *models.Update
}

// Dispatcher fans updates out to worker goroutines. Updates of one chat
// always land on the same worker, so per-chat ordering is preserved while
// chats are handled in parallel: a slow tracking command in one chat does
// not stall the others.
type Dispatcher struct {
	bot     *bot.Bot
	handler HandlerFunc
	queues  []chan queued
}

// NewDispatcher creates a dispatcher with the given worker count.
func NewDispatcher(b *bot.Bot, workers int, h HandlerFunc) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{bot: b, handler: h, queues: make([]chan queued, workers)}
	for i := range d.queues {
		d.queues[i] = make(chan queued, 100)
		go d.worker(d.queues[i])
	}
	return d
}

// Dispatch routes the update to the worker owning its chat.
func (d *Dispatcher) Dispatch(ctx context.Context, upd *models.Update) {
	idx := 0
	if id := chatIDOf(upd); id != 0 {
		if id < 0 {
			id = -id
		}
		idx = int(id) % len(d.queues)
	}
	d.queues[idx] <- queued{ctx: ctx, upd: upd}
}

func (d *Dispatcher) worker(in <-chan queued) {
	for item := range in {
		d.handler(item.ctx, d.bot, item.upd)
	}
}

func chatIDOf(u *models.Update) int64 {
	if u.Message != nil {
		return u.Message.Chat.ID
	}
	if u.CallbackQuery != nil && u.CallbackQuery.Message.Message != nil {
		return u.CallbackQuery.Message.Message.Chat.ID
	}
	return 0
}
