package app

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/maaaruch/tg-win-bot/internal/logger"
	"github.com/maaaruch/tg-win-bot/internal/pipeline"
	"github.com/maaaruch/tg-win-bot/internal/ranking"
	"github.com/maaaruch/tg-win-bot/internal/session"
	"github.com/maaaruch/tg-win-bot/internal/storage"
)

// Bot is the part of the Telegram client the app talks to.
type Bot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

type App struct {
	bot      Bot
	store    *storage.Store
	pipeline *pipeline.Pipeline
	ranking  *ranking.Service
	log      *logger.Logger
	language language.Tag
}

func New(bot Bot, store *storage.Store, p *pipeline.Pipeline, log *logger.Logger, defaultLanguage string) *App {
	tag, ok := matchLanguage(defaultLanguage)
	if !ok {
		log.Warn("unsupported default language, falling back to English", "language", defaultLanguage)
	}
	return &App{
		bot:      bot,
		store:    store,
		pipeline: p,
		ranking:  ranking.New(store),
		log:      log,
		language: tag,
	}
}

func (a *App) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return nil

		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil {
				a.handleMessage(ctx, update.Message)
			}
		}
	}
}

func (a *App) printer(ctx context.Context, guildID string) *message.Printer {
	settings, err := a.store.GetGuildSettings(ctx, guildID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.log.Warn("load guild settings", "guild", guildID, "error", err)
		}
		return newPrinter(a.language)
	}
	if tag, ok := matchLanguage(settings.Language); ok {
		return newPrinter(tag)
	}
	return newPrinter(a.language)
}

func (a *App) reply(msg *tgbotapi.Message, text string) {
	m := tgbotapi.NewMessage(msg.Chat.ID, text)
	m.ReplyToMessageID = msg.MessageID
	if _, err := a.bot.Send(m); err != nil {
		a.log.Error("send reply", "chat", msg.Chat.ID, "error", err)
	}
}

func guildOf(msg *tgbotapi.Message) string {
	return strconv.FormatInt(msg.Chat.ID, 10)
}

func isGroup(msg *tgbotapi.Message) bool {
	return msg.Chat != nil && (msg.Chat.IsGroup() || msg.Chat.IsSuperGroup())
}

// ---------- Updates ----------

func (a *App) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.IsBot || msg.Chat == nil {
		return
	}
	guildID := guildOf(msg)

	if isGroup(msg) {
		if err := a.store.UpsertMember(ctx, memberOf(guildID, msg.From)); err != nil {
			a.log.Warn("remember member", "guild", guildID, "user", msg.From.ID, "error", err)
		}
	}

	// proof travels as a photo or document captioned with the command
	text, entities := msg.Text, msg.Entities
	if text == "" {
		text, entities = msg.Caption, msg.CaptionEntities
	}
	cmd := commandOf(text)
	if cmd == "" {
		return
	}

	p := a.printer(ctx, guildID)

	switch cmd {
	case "start", "help":
		a.reply(msg, p.Sprintf(msgHelp, int(session.Timeout.Minutes())))
		return
	}

	if !isGroup(msg) {
		a.reply(msg, p.Sprintf(msgGroupOnly))
		return
	}

	switch cmd {
	case "win":
		a.handleWin(ctx, p, msg, text, entities)
	case "verify":
		a.handleVerify(ctx, p, msg)
	case "stats":
		a.handleStats(ctx, p, msg, text, entities)
	case "ranking":
		a.handleRanking(ctx, p, msg, commandArgs(text))
	case "teamranking":
		a.handleTeamRanking(ctx, p, msg, commandArgs(text))
	case "reset":
		a.handleReset(ctx, p, msg, text, entities)
	case "language":
		a.handleLanguage(ctx, p, msg, commandArgs(text))
	default:
		a.reply(msg, p.Sprintf(msgUnknownCommand))
	}
}

// resolveMembers turns the argument tokens and text mentions of a command
// into user ids. The first unresolvable token is returned as unknown.
func (a *App) resolveMembers(ctx context.Context, guildID string, tokens []string, mentioned []*tgbotapi.User) (ids []string, unknown string, err error) {
	for _, tok := range tokens {
		ref, ok := parseMemberRef(tok)
		if !ok {
			return nil, tok, nil
		}
		switch ref.kind {
		case refUserID:
			ids = append(ids, ref.value)
		case refUserName:
			m, err := a.store.FindMemberByUserName(ctx, guildID, ref.value)
			if errors.Is(err, storage.ErrNotFound) {
				return nil, tok, nil
			}
			if err != nil {
				return nil, "", err
			}
			ids = append(ids, m.UserID)
		}
	}
	for _, u := range mentioned {
		if err := a.store.UpsertMember(ctx, memberOf(guildID, u)); err != nil {
			a.log.Warn("remember mentioned member", "guild", guildID, "user", u.ID, "error", err)
		}
		ids = append(ids, userID(u))
	}
	return ids, "", nil
}

func (a *App) isAdmin(msg *tgbotapi.Message) bool {
	member, err := a.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: msg.Chat.ID, UserID: msg.From.ID},
	})
	if err != nil {
		a.log.Error("get chat member", "chat", msg.Chat.ID, "user", msg.From.ID, "error", err)
		return false
	}
	return member.IsCreator() || member.IsAdministrator()
}

func (a *App) labels(ctx context.Context, guildID string, ids []string) []string {
	known, err := a.store.MembersByID(ctx, guildID, ids)
	if err != nil {
		a.log.Warn("load member names", "guild", guildID, "error", err)
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if m, ok := known[id]; ok {
			out = append(out, m.Label())
		} else {
			out = append(out, id)
		}
	}
	return out
}

func joinLabels(labels []string) string {
	return strings.Join(labels, ", ")
}
