package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sandevgo/govorun/internal/config"
	"github.com/sandevgo/govorun/internal/dialog"
	"github.com/sandevgo/govorun/internal/service/engine"
	"github.com/sandevgo/govorun/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const baseContextKey = "base_context"

const (
	likeButton    = "👍"
	dislikeButton = "👎"
)

type Bot struct {
	bot      *tele.Bot
	sessions *dialog.Registry
	engine   *engine.Engine

	// last reply per interlocutor, kept for like/dislike feedback;
	// entries are never evicted.
	mu        sync.Mutex
	lastReply map[string]string
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	sessions *dialog.Registry,
	eng *engine.Engine,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:       b,
		sessions:  sessions,
		engine:    eng,
		lastReply: make(map[string]string),
	}

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	b.Handle("/start", bot.handleStart)
	b.Handle(tele.OnText, bot.handleMessage)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) handleStart(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	logger := log.FromCtx(ctx)

	interlocutor := interlocutorID(c)
	session := b.sessions.Get(interlocutor)

	greeting, err := b.engine.StartGreetingScenario(ctx, session)
	if err != nil {
		logger.Error().Err(err).Str("interlocutor", interlocutor).Msg("greeting failed")
		return nil
	}

	b.remember(interlocutor, greeting)
	return c.Send(greeting, feedbackKeyboard())
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	logger := log.FromCtx(ctx)

	interlocutor := interlocutorID(c)
	text := c.Text()

	if text == likeButton || text == dislikeButton {
		logger.Info().
			Str("interlocutor", interlocutor).
			Str("feedback", text).
			Str("reply", b.recall(interlocutor)).
			Msg("reply feedback")
		return nil
	}

	session := b.sessions.Get(interlocutor)
	session.Lock()
	session.History.AddHuman(text)
	session.Unlock()

	_ = c.Notify(tele.Typing)

	replies, err := b.engine.ProcessHumanMessage(ctx, session)
	if err != nil {
		logger.Error().Err(err).Str("interlocutor", interlocutor).Msg("turn failed")
		return nil
	}

	for _, reply := range replies {
		if err := c.Send(reply, feedbackKeyboard()); err != nil {
			logger.Error().Err(err).Msg("failed to send telegram message")
			continue
		}
		b.remember(interlocutor, reply)
	}
	return nil
}

func (b *Bot) remember(interlocutor, reply string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastReply[interlocutor] = reply
}

func (b *Bot) recall(interlocutor string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastReply[interlocutor]
}

func interlocutorID(c tele.Context) string {
	return fmt.Sprintf("telegram-%d", c.Sender().ID)
}

func feedbackKeyboard() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	markup.Reply(markup.Row(markup.Text(likeButton), markup.Text(dislikeButton)))
	return markup
}
