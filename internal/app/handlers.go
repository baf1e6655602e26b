package app

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/message"

	"github.com/maaaruch/tg-win-bot/internal/domain"
	"github.com/maaaruch/tg-win-bot/internal/pipeline"
	"github.com/maaaruch/tg-win-bot/internal/session"
)

// ---------- Win verification ----------

func (a *App) handleWin(ctx context.Context, p *message.Printer, msg *tgbotapi.Message, text string, entities []tgbotapi.MessageEntity) {
	stripped, mentioned := stripTextMentions(text, entities)
	args := strings.Fields(commandArgs(stripped))
	if len(args) == 0 {
		a.reply(msg, p.Sprintf(msgWinUsage))
		return
	}

	mode, err := domain.ParseMode(args[0])
	if err != nil {
		a.reply(msg, p.Sprintf(msgInvalidMode))
		return
	}

	guildID := guildOf(msg)
	teammates, unknown, err := a.resolveMembers(ctx, guildID, args[1:], mentioned)
	if err != nil {
		a.log.Error("resolve teammates", "guild", guildID, "error", err)
		a.reply(msg, p.Sprintf(msgStorage))
		return
	}
	if unknown != "" {
		a.reply(msg, p.Sprintf(msgUnknownMember, unknown))
		return
	}

	user := participantOf(msg.From)
	sess, err := a.pipeline.Start(user, mode, teammates)
	if err != nil {
		a.replyError(p, msg, err)
		return
	}

	minutes := int(session.Timeout.Minutes())
	if len(sess.Teammates) == 0 {
		a.reply(msg, p.Sprintf(msgWinStarted, user.Name, modeLabel(p, mode), minutes))
		return
	}
	team := joinLabels(a.labels(ctx, guildID, sess.Teammates))
	a.reply(msg, p.Sprintf(msgWinStartedTeam, user.Name, modeLabel(p, mode), team, minutes))
}

func (a *App) handleVerify(ctx context.Context, p *message.Printer, msg *tgbotapi.Message) {
	guildID := guildOf(msg)
	res, err := a.pipeline.Complete(ctx, pipeline.CompleteRequest{
		GuildID:  guildID,
		User:     participantOf(msg.From),
		Evidence: evidenceOf(msg),
	})
	if err != nil {
		a.replyError(p, msg, err)
		return
	}

	u := res.User
	var sb strings.Builder
	sb.WriteString(p.Sprintf(msgVerified, res.Submission.AuthorName, modeLabel(p, res.Submission.Mode),
		u.Solo, u.Duo, u.Squad, u.Total))
	if res.Team != nil {
		sb.WriteString("\n")
		sb.WriteString(p.Sprintf(msgVerifiedTeam, joinLabels(a.labels(ctx, guildID, res.Team.Members)), res.Team.Count))
	}
	a.reply(msg, sb.String())
}

// replyError turns a pipeline failure into the matching user message.
func (a *App) replyError(p *message.Printer, msg *tgbotapi.Message, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidMode):
		a.reply(msg, p.Sprintf(msgInvalidMode))
	case domain.KindOf(err) == domain.KindValidation:
		a.reply(msg, p.Sprintf(msgInvalidTeam))
	case errors.Is(err, domain.ErrSessionExpired):
		a.reply(msg, p.Sprintf(msgExpired))
	case domain.KindOf(err) == domain.KindSession:
		a.reply(msg, p.Sprintf(msgNoSession))
	case domain.KindOf(err) == domain.KindEvidence:
		a.reply(msg, p.Sprintf(msgMissingProof))
	default:
		a.log.Error("win pipeline", "chat", msg.Chat.ID, "user", msg.From.ID, "kind", domain.KindOf(err), "error", err)
		a.reply(msg, p.Sprintf(msgStorage))
	}
}

// ---------- Stats / rankings ----------

func (a *App) handleStats(ctx context.Context, p *message.Printer, msg *tgbotapi.Message, text string, entities []tgbotapi.MessageEntity) {
	guildID := guildOf(msg)
	target := participantOf(msg.From)

	stripped, mentioned := stripTextMentions(text, entities)
	args := strings.Fields(commandArgs(stripped))
	if len(args) > 0 || len(mentioned) > 0 {
		ids, unknown, err := a.resolveMembers(ctx, guildID, args, mentioned)
		if err != nil {
			a.log.Error("resolve stats target", "guild", guildID, "error", err)
			a.reply(msg, p.Sprintf(msgStorage))
			return
		}
		if unknown != "" {
			a.reply(msg, p.Sprintf(msgUnknownMember, unknown))
			return
		}
		target = domain.Participant{ID: ids[0], Name: a.labels(ctx, guildID, ids[:1])[0]}
	}

	st, err := a.ranking.UserStats(ctx, guildID, target)
	if err != nil {
		a.log.Error("stats", "guild", guildID, "user", target.ID, "error", err)
		a.reply(msg, p.Sprintf(msgStorage))
		return
	}
	name := st.UserName
	if name == "" {
		name = target.Name
	}
	a.reply(msg, p.Sprintf(msgStats, name, st.Solo, st.Duo, st.Squad, st.Total))
}

func (a *App) handleRanking(ctx context.Context, p *message.Printer, msg *tgbotapi.Message, args string) {
	by, err := domain.ParseCounter(firstField(args))
	if err != nil {
		a.reply(msg, p.Sprintf(msgInvalidMode))
		return
	}

	guildID := guildOf(msg)
	entries, err := a.ranking.Users(ctx, guildID, by)
	if err != nil {
		a.log.Error("ranking", "guild", guildID, "by", by.String(), "error", err)
		a.reply(msg, p.Sprintf(msgStorage))
		return
	}

	var sb strings.Builder
	sb.WriteString(p.Sprintf(msgRankingTitle, counterLabel(p, by)))
	sb.WriteString("\n\n")
	if len(entries) == 0 {
		sb.WriteString(p.Sprintf(msgRankingEmpty))
	}
	for _, e := range entries {
		sb.WriteString(p.Sprintf(msgRankingLine, medal(e.Rank), e.Name, e.Value))
		sb.WriteString("\n")
	}
	a.reply(msg, strings.TrimRight(sb.String(), "\n"))
}

func (a *App) handleTeamRanking(ctx context.Context, p *message.Printer, msg *tgbotapi.Message, args string) {
	mode, err := domain.ParseMode(firstField(args))
	if err != nil || !mode.IsTeam() {
		a.reply(msg, p.Sprintf(msgTeamRankingUsage))
		return
	}

	guildID := guildOf(msg)
	entries, err := a.ranking.Teams(ctx, guildID, mode)
	if err != nil {
		a.log.Error("team ranking", "guild", guildID, "mode", mode.String(), "error", err)
		a.reply(msg, p.Sprintf(msgStorage))
		return
	}

	var sb strings.Builder
	sb.WriteString(p.Sprintf(msgTeamRankingTitle, modeLabel(p, mode)))
	sb.WriteString("\n\n")
	if len(entries) == 0 {
		sb.WriteString(p.Sprintf(msgRankingEmpty))
	}
	for _, e := range entries {
		sb.WriteString(p.Sprintf(msgRankingLine, medal(e.Rank), joinLabels(e.Members), e.Count))
		sb.WriteString("\n")
	}
	a.reply(msg, strings.TrimRight(sb.String(), "\n"))
}

// ---------- Administration ----------

func (a *App) handleReset(ctx context.Context, p *message.Printer, msg *tgbotapi.Message, text string, entities []tgbotapi.MessageEntity) {
	if !a.isAdmin(msg) {
		a.reply(msg, p.Sprintf(msgAdminOnly))
		return
	}

	stripped, mentioned := stripTextMentions(text, entities)
	args := strings.Fields(commandArgs(stripped))
	if len(args) == 0 || (args[0] != "all" && args[0] != "user") {
		a.reply(msg, p.Sprintf(msgResetUsage))
		return
	}

	guildID := guildOf(msg)
	log := a.log.With("guild", guildID, "admin", msg.From.ID, "scope", args[0])

	hasTarget := len(args) > 1 || len(mentioned) > 0
	if (args[0] == "all") == hasTarget {
		a.reply(msg, p.Sprintf(msgResetUsage))
		return
	}

	if args[0] == "all" {
		rep, err := a.store.ResetGuild(ctx, guildID)
		if err != nil {
			log.Error("reset guild", "error", err)
			a.reply(msg, p.Sprintf(msgStorage))
			return
		}
		log.Info("guild reset", "submissions", rep.Submissions, "users", rep.Users, "teams", rep.Teams)
		a.reply(msg, p.Sprintf(msgResetGuild, rep.Submissions, rep.Users, rep.Teams))
		return
	}

	ids, unknown, err := a.resolveMembers(ctx, guildID, args[1:], mentioned)
	if err != nil {
		log.Error("resolve reset target", "error", err)
		a.reply(msg, p.Sprintf(msgStorage))
		return
	}
	if unknown != "" {
		a.reply(msg, p.Sprintf(msgUnknownMember, unknown))
		return
	}
	if len(ids) != 1 {
		a.reply(msg, p.Sprintf(msgResetUsage))
		return
	}

	rep, err := a.store.ResetUser(ctx, guildID, ids[0])
	if err != nil {
		log.Error("reset user", "user", ids[0], "error", err)
		a.reply(msg, p.Sprintf(msgStorage))
		return
	}
	log.Info("user reset", "user", ids[0], "submissions", rep.Submissions, "teams", rep.Teams)
	a.reply(msg, p.Sprintf(msgResetUser, a.labels(ctx, guildID, ids)[0], rep.Submissions, rep.Teams))
}

func (a *App) handleLanguage(ctx context.Context, p *message.Printer, msg *tgbotapi.Message, args string) {
	if !a.isAdmin(msg) {
		a.reply(msg, p.Sprintf(msgAdminOnly))
		return
	}

	tag, ok := matchLanguage(firstField(args))
	if !ok {
		a.reply(msg, p.Sprintf(msgLanguageUsage))
		return
	}

	guildID := guildOf(msg)
	if err := a.store.SetGuildLanguage(ctx, guildID, tag.String()); err != nil {
		a.log.Error("set language", "guild", guildID, "error", err)
		a.reply(msg, p.Sprintf(msgStorage))
		return
	}
	a.reply(msg, newPrinter(tag).Sprintf(msgLanguageSet))
}

func firstField(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}
