package app

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/maaaruch/tg-win-bot/internal/domain"
)

const (
	msgHelp             = "help"
	msgGroupOnly        = "group_only"
	msgUnknownCommand   = "unknown_command"
	msgWinUsage         = "win.usage"
	msgWinStarted       = "win.started"
	msgWinStartedTeam   = "win.started.team"
	msgInvalidMode      = "err.invalid_mode"
	msgInvalidTeam      = "err.invalid_team"
	msgUnknownMember    = "err.unknown_member"
	msgNoSession        = "err.no_session"
	msgExpired          = "err.expired"
	msgMissingProof     = "err.missing_proof"
	msgStorage          = "err.storage"
	msgVerified         = "verify.done"
	msgVerifiedTeam     = "verify.team"
	msgStats            = "stats"
	msgRankingTitle     = "ranking.title"
	msgTeamRankingTitle = "teamranking.title"
	msgRankingEmpty     = "ranking.empty"
	msgRankingLine      = "ranking.line"
	msgTeamRankingUsage = "teamranking.usage"
	msgAdminOnly        = "admin_only"
	msgResetUsage       = "reset.usage"
	msgResetGuild       = "reset.guild"
	msgResetUser        = "reset.user"
	msgLanguageUsage    = "language.usage"
	msgLanguageSet      = "language.set"
	msgModeSolo         = "mode.solo"
	msgModeDuo          = "mode.duo"
	msgModeSquad        = "mode.squad"
	msgModeTotal        = "mode.total"
)

var supportedLanguages = []language.Tag{language.English, language.Korean}

var languageMatcher = language.NewMatcher(supportedLanguages)

var translations = map[string][2]string{
	msgHelp: {
		"Win tracker.\n\n" +
			"/win <solo|duo|squad> [@teammate ...] - start a verification\n" +
			"then send a screenshot with the caption /verify within %d minutes\n" +
			"/stats [@user] - win counters\n" +
			"/ranking [total|solo|duo|squad] - top 10 players\n" +
			"/teamranking <duo|squad> - top 10 teams\n" +
			"/reset all | /reset user @user - admins only\n" +
			"/language <en|ko> - admins only",
		"치킨 집계 봇입니다.\n\n" +
			"/win <solo|duo|squad> [@팀원 ...] - 치킨 인증 시작\n" +
			"%d분 안에 /verify 캡션과 함께 스크린샷을 보내주세요\n" +
			"/stats [@유저] - 치킨 통계\n" +
			"/ranking [total|solo|duo|squad] - 상위 10명\n" +
			"/teamranking <duo|squad> - 상위 10팀\n" +
			"/reset all | /reset user @유저 - 관리자 전용\n" +
			"/language <en|ko> - 관리자 전용",
	},
	msgGroupOnly:      {"This command only works in group chats.", "이 명령어는 그룹 채팅에서만 사용할 수 있습니다."},
	msgUnknownCommand: {"Unknown command. Try /help.", "알 수 없는 명령어입니다. /help 를 확인하세요."},
	msgWinUsage:       {"Usage: /win <solo|duo|squad> [@teammate ...]", "사용법: /win <solo|duo|squad> [@팀원 ...]"},
	msgWinStarted: {
		"%s started a %s win verification.\nNext: send a screenshot with the caption /verify within %d minutes.",
		"%s님의 %s 치킨 인증을 시작합니다!\n다음 단계: %d분 안에 /verify 캡션과 함께 스크린샷을 보내주세요.",
	},
	msgWinStartedTeam: {
		"%s started a %s win verification with %s.\nNext: send a screenshot with the caption /verify within %d minutes.",
		"%s님의 %s 치킨 인증을 시작합니다! 팀원: %s\n다음 단계: %d분 안에 /verify 캡션과 함께 스크린샷을 보내주세요.",
	},
	msgInvalidMode: {"Unknown mode. Use solo, duo or squad.", "알 수 없는 게임 모드입니다. solo, duo, squad 중에서 선택하세요."},
	msgInvalidTeam: {
		"Invalid team: solo takes no teammates, duo at most 1, squad at most 3, and nobody can be named twice or name themselves.",
		"잘못된 팀 구성입니다: 솔로는 팀원 없이, 듀오는 최대 1명, 스쿼드는 최대 3명까지 지정할 수 있으며 본인이나 같은 사람을 두 번 지정할 수 없습니다.",
	},
	msgUnknownMember: {
		"I don't know %s yet. They need to write in this chat once first.",
		"%s 님을 아직 모릅니다. 먼저 이 채팅방에 한 번 메시지를 보내야 합니다.",
	},
	msgNoSession:    {"No pending verification. Start one with /win.", "진행 중인 인증이 없습니다. /win 으로 먼저 시작하세요."},
	msgExpired:      {"Your verification expired. Start again with /win.", "인증 시간이 만료되었습니다. /win 으로 다시 시작하세요."},
	msgMissingProof: {"The proof must be an image. The verification was cancelled, start again with /win.", "증명 파일이 이미지가 아닙니다. 인증이 취소되었으니 /win 으로 다시 시작하세요."},
	msgStorage:      {"Something went wrong while saving. Please try again.", "처리 중 오류가 발생했습니다. 다시 시도해주세요."},
	msgVerified: {
		"%s won a %s game! 🍗\nSolo %d · Duo %d · Squad %d · Total %d",
		"%s님이 %s 모드에서 치킨을 달성했습니다! 🍗\n솔로 %d · 듀오 %d · 스쿼드 %d · 총 %d",
	},
	msgVerifiedTeam: {"Team %s: %d wins", "팀 %s: 치킨 %d개"},
	msgStats: {
		"🍗 Wins of %s\n👤 Solo: %d\n👥 Duo: %d\n👨‍👧‍👧 Squad: %d\nTotal: %d",
		"🍗 %s 치킨 통계\n👤 솔로: %d개\n👥 듀오: %d개\n👨‍👧‍👧 스쿼드: %d개\n총 치킨: %d개",
	},
	msgRankingTitle:     {"🍗 %s ranking", "🍗 %s 치킨 랭킹"},
	msgTeamRankingTitle: {"🍗 %s team ranking", "🍗 %s 팀 랭킹"},
	msgRankingEmpty:     {"No wins recorded yet.", "아직 치킨 기록이 없습니다."},
	msgRankingLine:      {"%s %s - %d", "%s %s - %d개"},
	msgTeamRankingUsage: {"Usage: /teamranking <duo|squad>", "사용법: /teamranking <duo|squad>"},
	msgAdminOnly:        {"Only chat administrators can do that.", "서버 관리자만 사용할 수 있습니다."},
	msgResetUsage:       {"Usage: /reset all | /reset user @user", "사용법: /reset all | /reset user @유저"},
	msgResetGuild: {
		"All win data of this chat was reset (%d submissions, %d players, %d teams).",
		"이 채팅방의 모든 치킨 데이터가 초기화되었습니다 (인증 %d건, 유저 %d명, 팀 %d개).",
	},
	msgResetUser: {
		"Win data of %s was reset (%d submissions, %d teams).",
		"%s님의 모든 치킨 데이터가 초기화되었습니다 (인증 %d건, 팀 %d개).",
	},
	msgLanguageUsage: {"Usage: /language <en|ko>", "사용법: /language <en|ko>"},
	msgLanguageSet:   {"Language set to English.", "언어가 한국어로 설정되었습니다."},
	msgModeSolo:      {"solo", "솔로"},
	msgModeDuo:       {"duo", "듀오"},
	msgModeSquad:     {"squad", "스쿼드"},
	msgModeTotal:     {"overall", "전체"},
}

var messages = mustBuildCatalog()

func mustBuildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, tr := range translations {
		for i, tag := range supportedLanguages {
			if err := b.SetString(tag, key, tr[i]); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// matchLanguage maps a user supplied tag onto a supported language.
func matchLanguage(s string) (language.Tag, bool) {
	tag, err := language.Parse(s)
	if err != nil {
		return language.English, false
	}
	_, idx, conf := languageMatcher.Match(tag)
	if conf == language.No {
		return language.English, false
	}
	return supportedLanguages[idx], true
}

func newPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(messages))
}

func modeLabel(p *message.Printer, m domain.Mode) string {
	switch m {
	case domain.ModeSolo:
		return p.Sprintf(msgModeSolo)
	case domain.ModeDuo:
		return p.Sprintf(msgModeDuo)
	case domain.ModeSquad:
		return p.Sprintf(msgModeSquad)
	}
	return m.String()
}

func counterLabel(p *message.Printer, c domain.Counter) string {
	switch c {
	case domain.CounterSolo:
		return modeLabel(p, domain.ModeSolo)
	case domain.CounterDuo:
		return modeLabel(p, domain.ModeDuo)
	case domain.CounterSquad:
		return modeLabel(p, domain.ModeSquad)
	}
	return p.Sprintf(msgModeTotal)
}

func medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return strconv.Itoa(rank) + "."
}
