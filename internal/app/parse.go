package app

import (
	"strconv"
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/maaaruch/tg-win-bot/internal/domain"
)

// refKind says how a teammate was written in a command.
type refKind int

const (
	refUserName refKind = iota + 1
	refUserID
)

type memberRef struct {
	kind  refKind
	value string
}

// parseMemberRef accepts "@username" or a numeric Telegram user id.
func parseMemberRef(tok string) (memberRef, bool) {
	tok = strings.TrimSpace(tok)
	if name := strings.TrimPrefix(tok, "@"); name != tok {
		if name == "" {
			return memberRef{}, false
		}
		return memberRef{kind: refUserName, value: name}, true
	}
	if id, err := strconv.ParseInt(tok, 10, 64); err == nil && id > 0 {
		return memberRef{kind: refUserID, value: tok}, true
	}
	return memberRef{}, false
}

// commandOf returns the bot command a text or caption starts with, without
// the slash and any @botname suffix.
func commandOf(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	first := strings.Fields(text)[0]
	cmd := strings.TrimPrefix(first, "/")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd)
}

// commandArgs returns everything after the leading command token.
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		return strings.TrimSpace(text[i:])
	}
	return ""
}

// stripTextMentions blanks out text_mention entities and returns the users
// they point at. Entity offsets are in UTF-16 code units.
func stripTextMentions(text string, entities []tgbotapi.MessageEntity) (string, []*tgbotapi.User) {
	units := utf16.Encode([]rune(text))
	var users []*tgbotapi.User
	for _, e := range entities {
		if e.Type != "text_mention" || e.User == nil {
			continue
		}
		if e.Offset < 0 || e.Length <= 0 || e.Offset+e.Length > len(units) {
			continue
		}
		for i := e.Offset; i < e.Offset+e.Length; i++ {
			units[i] = ' '
		}
		users = append(users, e.User)
	}
	return string(utf16.Decode(units)), users
}

// evidenceOf reads the proof carried by the message itself.
func evidenceOf(msg *tgbotapi.Message) domain.Evidence {
	if len(msg.Photo) > 0 {
		return domain.Evidence{IsImage: true, ProofRef: msg.Photo[len(msg.Photo)-1].FileID}
	}
	if msg.Document != nil {
		return domain.Evidence{
			IsImage:  strings.HasPrefix(strings.ToLower(msg.Document.MimeType), "image/"),
			ProofRef: msg.Document.FileID,
		}
	}
	return domain.Evidence{}
}

func userID(u *tgbotapi.User) string {
	return strconv.FormatInt(u.ID, 10)
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return userID(u)
	}
	return name
}

func participantOf(u *tgbotapi.User) domain.Participant {
	return domain.Participant{ID: userID(u), Name: displayName(u)}
}

func memberOf(guildID string, u *tgbotapi.User) domain.Member {
	return domain.Member{
		GuildID:     guildID,
		UserID:      userID(u),
		UserName:    u.UserName,
		DisplayName: strings.TrimSpace(u.FirstName + " " + u.LastName),
	}
}
