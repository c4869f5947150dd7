// Package handlers maps chat commands onto the tracking registry: the
// two-step /start registration dialogue, the one-step /track variant,
// /stop, /checknow and the operator-only /clients listing.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"vaxbot/internal/adapter/telegram/middleware"
	"vaxbot/internal/tracking"
)

const helpText = "You can use any of the following commands:\n\n" +
	"/start - register for tracking (asks for interval and pincodes)\n" +
	"/track <pincodes> - register with the default interval (comma separated pincodes)\n" +
	"/checknow - run an availability check right now\n" +
	"/stop - stop tracking\n" +
	"/help - show this message"

// Router routes updates to command handlers and feeds plain-text replies
// into the registration dialogue.
type Router struct {
	registry *tracking.Registry
	admins   *middleware.ACL
	log      *slog.Logger
	dialogs  *dialogues
}

// New creates a command router.
func New(registry *tracking.Registry, admins *middleware.ACL, log *slog.Logger) *Router {
	return &Router{
		registry: registry,
		admins:   admins,
		log:      log,
		dialogs:  newDialogues(),
	}
}

// Handle processes one update.
func (r *Router) Handle(ctx context.Context, b *bot.Bot, upd *models.Update) {
	msg := upd.Message
	if msg == nil || msg.Text == "" {
		return
	}
	text := strings.TrimSpace(msg.Text)

	if !strings.HasPrefix(text, "/") {
		r.advanceDialogue(ctx, b, msg, text)
		return
	}

	parts := strings.SplitN(text, " ", 2)
	cmd := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i] // группы присылают /stop@BotName
	}
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "start":
		r.start(ctx, b, msg)
	case "cancel":
		r.cancelDialogue(ctx, b, msg)
	case "track":
		r.track(ctx, b, msg, args)
	case "stop":
		r.stop(ctx, b, msg)
	case "checknow":
		r.checkNow(ctx, b, msg)
	case "clients":
		r.clients(ctx, b, msg)
	case "help":
		r.reply(ctx, b, msg.Chat.ID, helpText)
	}
}

func (r *Router) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		r.log.Error("send reply", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

func displayName(chat models.Chat) string {
	name := strings.TrimSpace(chat.FirstName + " " + chat.LastName)
	if name == "" {
		name = chat.Title
	}
	return name
}

func registerErrorText(err error) string {
	switch {
	case err == nil:
		return ""
	case isIntervalTooShort(err):
		return "Time interval too short"
	case isInvalidPincodes(err):
		return "Invalid pincodes. Registration cancelled.\nSend /start to retry."
	default:
		return "Vaccine tracker registration failed"
	}
}

func (r *Router) track(ctx context.Context, b *bot.Bot, msg *models.Message, args string) {
	if args == "" {
		r.reply(ctx, b, msg.Chat.ID, "Usage: /track 560001,110001")
		return
	}
	pins, ok := parsePincodes(args)
	if !ok {
		r.reply(ctx, b, msg.Chat.ID, "Invalid pincodes. Expected comma separated 6-digit codes.")
		return
	}
	err := r.registry.Register(ctx, tracking.Registration{
		UserID:      msg.Chat.ID,
		DisplayName: displayName(msg.Chat),
		PostalCodes: pins,
		Interval:    tracking.DefaultInterval,
	})
	if err != nil {
		r.log.Warn("track registration rejected", slog.Int64("chat_id", msg.Chat.ID), slog.Any("error", err))
		r.reply(ctx, b, msg.Chat.ID, registerErrorText(err))
		return
	}
	r.reply(ctx, b, msg.Chat.ID, "Vaccine tracker registration successful\n\n"+helpText)
}

func (r *Router) stop(ctx context.Context, b *bot.Bot, msg *models.Message) {
	r.registry.Unregister(msg.Chat.ID)
	r.reply(ctx, b, msg.Chat.ID, "Vaccine tracker stopped")
}

func (r *Router) checkNow(ctx context.Context, b *bot.Bot, msg *models.Message) {
	snap, ok := r.registry.Lookup(msg.Chat.ID)
	if !ok {
		r.reply(ctx, b, msg.Chat.ID, "Vaccine tracker not registered.\nSend /start to register.")
		return
	}
	r.reply(ctx, b, msg.Chat.ID, "Vaccine tracker is running for pincodes: "+strings.Join(snap.PostalCodes, ", "))
	if err := r.registry.RunNow(ctx, msg.Chat.ID); err != nil {
		r.log.Warn("manual check failed", slog.Int64("chat_id", msg.Chat.ID), slog.Any("error", err))
	}
}

func (r *Router) clients(ctx context.Context, b *bot.Bot, msg *models.Message) {
	if msg.From == nil || !r.admins.IsAllowed(msg.From.ID) {
		r.reply(ctx, b, msg.Chat.ID, "Access denied")
		return
	}
	snaps := r.registry.ListAll()
	if len(snaps) == 0 {
		r.reply(ctx, b, msg.Chat.ID, "No users are registered")
		return
	}
	var sb strings.Builder
	sb.WriteString("Following users are registered:")
	for _, s := range snaps {
		fmt.Fprintf(&sb, "\n\nChat ID: %d\nName: %s\nPincodes: %s\nTime interval: %ds",
			s.UserID, s.DisplayName, strings.Join(s.PostalCodes, ", "), int(s.Interval.Seconds()))
	}
	r.reply(ctx, b, msg.Chat.ID, sb.String())
}
