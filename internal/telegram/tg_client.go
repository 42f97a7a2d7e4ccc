package telegram

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"strangerlink/backend/internal/chathub"
	"strangerlink/backend/internal/localization"
	"strangerlink/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UserPrefix namespaces Telegram chat ids inside the user id space.
const UserPrefix = "tg:"

// Sender is the part of *tgbotapi.BotAPI the transport uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// UserID returns the core user id of a Telegram chat.
func UserID(chatID int64) string {
	return UserPrefix + strconv.FormatInt(chatID, 10)
}

// ChatID extracts the Telegram chat id from a core user id.
func ChatID(userID string) (int64, bool) {
	if !strings.HasPrefix(userID, UserPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(userID, UserPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Client реалізує інтерфейс chathub.Client
type Client struct {
	UserID    string
	ChatID    int64
	Manager   *chathub.ManagerService
	Send      chan models.Event
	Bot       Sender
	Localizer *localization.Localizer

	closeOnce sync.Once
}

func (c *Client) GetUserID() string                    { return c.UserID }
func (c *Client) GetSendChannel() chan<- models.Event { return c.Send }

// Run запускає 'write pump'. 'Read pump' обробляється централізовано в BotService.
func (c *Client) Run() {
	go c.writePump()
}

// Close закриває Send канал
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

// language returns the user's profile language, or the default one once the
// user is gone.
func (c *Client) language() string {
	if p, err := c.Manager.Profile(c.UserID); err == nil && p.Language != "" {
		return p.Language
	}
	return localization.DefaultLanguage
}

// writePump слухає канал Send і надсилає повідомлення в Telegram
func (c *Client) writePump() {
	defer slog.Debug("telegram write pump stopped", "user_id", c.UserID)

	for ev := range c.Send {
		text := Render(c.Localizer, c.language(), ev)
		if text == "" {
			continue
		}
		if _, err := c.Bot.Send(tgbotapi.NewMessage(c.ChatID, text)); err != nil {
			slog.Error("failed to send telegram message", "user_id", c.UserID, "event", ev.Type, "err", err)
		}
	}
}

// Render turns a core event into the text shown in Telegram. Events that
// have no meaning in a text chat render as "".
func Render(l *localization.Localizer, lang string, ev models.Event) string {
	switch ev.Type {
	case models.EventMatched:
		if ev.PartnerProfile != nil && len(ev.PartnerProfile.Interests) > 0 {
			return fmt.Sprintf(l.GetString(lang, "match_found_interests"), strings.Join(ev.PartnerProfile.Interests, ", "))
		}
		return l.GetString(lang, "match_found")
	case models.EventNewMessage:
		if ev.Message == nil {
			return ""
		}
		return ev.Message.Text
	case models.EventPartnerDisconnected:
		return l.GetString(lang, "chat_ended_partner")
	case models.EventSessionEnded:
		return l.GetString(lang, "chat_ended_inactivity")
	case models.EventError:
		if ev.Error == "Account suspended" {
			return l.GetString(lang, "account_suspended")
		}
		return l.GetString(lang, "invalid_request")
	}
	return ""
}
