package handlers

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"vaxbot/internal/tracking"
)

// The /start registration dialogue is an explicit two-state machine per chat:
// AwaitingInterval -> AwaitingPincodes -> done. Invalid input re-prompts
// within the interval state; invalid pincodes cancel the dialogue, as does
// /cancel. The tracking core only ever sees the final validated tuple.

type dialogueStep int

const (
	stepAwaitingInterval dialogueStep = iota
	stepAwaitingPincodes
)

type dialogue struct {
	step     dialogueStep
	interval time.Duration
}

type dialogues struct {
	mu sync.Mutex
	m  map[int64]*dialogue
}

func newDialogues() *dialogues {
	return &dialogues{m: make(map[int64]*dialogue)}
}

// begin opens a fresh dialogue, replacing any in-flight one for the chat.
// The interval is pre-seeded with the default in case the user skips ahead.
func (d *dialogues) begin(chatID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m[chatID] = &dialogue{step: stepAwaitingInterval, interval: tracking.DefaultInterval}
}

func (d *dialogues) get(chatID int64) (*dialogue, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dl, ok := d.m[chatID]
	return dl, ok
}

func (d *dialogues) clear(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.m[chatID]
	delete(d.m, chatID)
	return ok
}

var (
	intervalRe = regexp.MustCompile(`^\d+$`)
	pincodesRe = regexp.MustCompile(`^\d{6}(,\d{6})*$`)
)

func parseSeconds(text string) (time.Duration, bool) {
	if !intervalRe.MatchString(text) {
		return 0, false
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

func parsePincodes(text string) ([]string, bool) {
	text = strings.ReplaceAll(text, " ", "")
	if !pincodesRe.MatchString(text) {
		return nil, false
	}
	return strings.Split(text, ","), true
}

func isIntervalTooShort(err error) bool { return errors.Is(err, tracking.ErrIntervalTooShort) }
func isInvalidPincodes(err error) bool  { return errors.Is(err, tracking.ErrInvalidPostalCodes) }

func (r *Router) start(ctx context.Context, b *bot.Bot, msg *models.Message) {
	r.dialogs.begin(msg.Chat.ID)
	r.reply(ctx, b, msg.Chat.ID, "Enter time interval (in seconds)")
}

func (r *Router) cancelDialogue(ctx context.Context, b *bot.Bot, msg *models.Message) {
	r.dialogs.clear(msg.Chat.ID)
	r.reply(ctx, b, msg.Chat.ID, "Registration cancelled.\nSend /start to retry.")
}

// advanceDialogue feeds one plain-text message into the chat's dialogue.
// Messages outside any dialogue are ignored.
func (r *Router) advanceDialogue(ctx context.Context, b *bot.Bot, msg *models.Message, text string) {
	dl, ok := r.dialogs.get(msg.Chat.ID)
	if !ok {
		return
	}

	switch dl.step {
	case stepAwaitingInterval:
		secs, ok := parseSeconds(text)
		if !ok {
			r.reply(ctx, b, msg.Chat.ID, "Invalid interval. Enter number of seconds")
			return
		}
		if secs < tracking.MinInterval {
			r.reply(ctx, b, msg.Chat.ID, "Time interval too short")
			return
		}
		dl.interval = secs
		dl.step = stepAwaitingPincodes
		r.reply(ctx, b, msg.Chat.ID, "Enter pincodes (comma separated)")

	case stepAwaitingPincodes:
		pins, ok := parsePincodes(text)
		if !ok {
			r.dialogs.clear(msg.Chat.ID)
			r.reply(ctx, b, msg.Chat.ID, "Invalid pincodes. Registration cancelled.\nSend /start to retry.")
			return
		}
		interval := dl.interval
		r.dialogs.clear(msg.Chat.ID)

		err := r.registry.Register(ctx, tracking.Registration{
			UserID:      msg.Chat.ID,
			DisplayName: displayName(msg.Chat),
			PostalCodes: pins,
			Interval:    interval,
		})
		if err != nil {
			r.log.Warn("dialogue registration rejected",
				slog.Int64("chat_id", msg.Chat.ID), slog.Any("error", err))
			r.reply(ctx, b, msg.Chat.ID, registerErrorText(err))
			return
		}
		r.reply(ctx, b, msg.Chat.ID, "Vaccine tracker registration successful\n\n"+helpText)
	}
}
