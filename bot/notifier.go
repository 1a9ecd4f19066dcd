// Package bot sends operational notices to Telegram chats.
//
// The notifier has two producers: the slog Telegram handler (records at or above
// the configured level) and the core service (new registrations).
// Messages are formatted as MarkdownV2; callers escape user data with Sanitize.
package bot

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unistuhelper/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

type Notifier struct {
	log     *slog.Logger
	api     *tgbotapi.Bot
	chatIds []int64
	wg      sync.WaitGroup
}

// NewNotifier connects to the Bot API. The logger must not itself forward to Telegram.
func NewNotifier(apiKey string, chatIds []int64, log *slog.Logger) (*Notifier, error) {
	if len(chatIds) == 0 {
		return nil, fmt.Errorf("no chat ids configured")
	}
	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	return &Notifier{
		log:     log.With(sl.Module("tgbot")),
		api:     api,
		chatIds: chatIds,
	}, nil
}

// SendMessageWithLevel delivers msg to every configured chat without blocking the caller.
func (n *Notifier) SendMessageWithLevel(msg string, level slog.Level) {
	if n == nil || msg == "" {
		return
	}
	for _, chatId := range n.chatIds {
		n.wg.Add(1)
		go func(id int64) {
			defer n.wg.Done()
			n.plainResponse(id, msg)
		}(chatId)
	}
}

// UserRegistered announces a new account and its inviter.
func (n *Notifier) UserRegistered(username, invitedBy string) {
	msg := fmt.Sprintf("New user registered: `%s`", Sanitize(username))
	if invitedBy != "" {
		msg += fmt.Sprintf("\ninvited by: `%s`", Sanitize(invitedBy))
	}
	n.SendMessageWithLevel(msg, slog.LevelInfo)
}

// Wait blocks until queued messages are sent.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

func (n *Notifier) plainResponse(chatId int64, text string) {
	_, err := n.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		n.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
		_, err = n.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			n.log.With(slog.Int64("id", chatId)).Error("sending safe message", sl.Err(err))
		}
	}
}

// Sanitize escapes MarkdownV2 reserved characters.
func Sanitize(input string) string {
	const reservedChars = "\\_{}#+-.!|()[]=*`~>"
	var sb strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}

// SanitizeCode escapes text placed inside a MarkdownV2 code or pre block,
// where only backslash and backtick are reserved.
func SanitizeCode(input string) string {
	var sb strings.Builder
	for _, char := range input {
		if char == '\\' || char == '`' {
			sb.WriteRune('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}
