// Package telegram handles the integration with the Telegram Bot API.
// It is responsible for receiving updates from Telegram, processing them,
// and communicating with the central chat hub. Every Telegram chat is a
// text-only user of the same core the WebSocket clients use.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"strangerlink/backend/internal/chathub"
	"strangerlink/backend/internal/complaint"
	"strangerlink/backend/internal/localization"
	"strangerlink/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const clientBufferSize = 32

// reportReasons are offered as buttons after /report.
var reportReasons = []string{"spam", "harassment", "inappropriate", "underage"}

// BotService is responsible for receiving Telegram updates and routing them to the hub.
type BotService struct {
	Bot        Sender
	Manager    *chathub.ManagerService
	Hub        *chathub.Hub
	Complaints *complaint.Service
	Localizer  *localization.Localizer

	mu      sync.Mutex
	clients map[int64]*Client
	// pendingReports holds the partner a user is about to report, keyed by chat.
	pendingReports map[int64]string
}

// NewBotService creates a new BotService instance around an authorised bot.
func NewBotService(bot Sender, m *chathub.ManagerService, hub *chathub.Hub, complaints *complaint.Service, l *localization.Localizer) *BotService {
	return &BotService{
		Bot:            bot,
		Manager:        m,
		Hub:            hub,
		Complaints:     complaints,
		Localizer:      l,
		clients:        make(map[int64]*Client),
		pendingReports: make(map[int64]string),
	}
}

// NewBotAPI authorises token against Telegram.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	slog.Info("telegram bot authorized", "account", bot.Self.UserName)
	return bot, nil
}

// Run long-polls api until ctx is cancelled.
func (s *BotService) Run(ctx context.Context, api *tgbotapi.BotAPI) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()
	s.Serve(ctx, updates)
}

// Serve handles updates until the channel closes or ctx is cancelled, then
// disconnects every Telegram user.
func (s *BotService) Serve(ctx context.Context, updates <-chan tgbotapi.Update) {
	defer s.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.HandleUpdate(update)
		}
	}
}

// HandleUpdate processes one Telegram update.
func (s *BotService) HandleUpdate(update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		s.handleMessage(update.Message)
	case update.CallbackQuery != nil:
		s.handleCallbackQuery(update.CallbackQuery)
	}
}

func (s *BotService) shutdown() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[int64]*Client)
	s.mu.Unlock()

	for _, c := range clients {
		s.Manager.Disconnect(c.UserID)
		s.Hub.Unregister(c)
		c.Close()
	}
	slog.Info("telegram transport stopped", "clients", len(clients))
}

// getOrCreateClient retrieves an existing Telegram client or connects a new one.
func (s *BotService) getOrCreateClient(chatID int64, languageCode string) (*Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[chatID]; ok {
		return c, nil
	}

	userID := UserID(chatID)
	var profile *models.ProfileUpdate
	if languageCode != "" && s.Localizer.Has(languageCode) {
		profile = &models.ProfileUpdate{Language: &languageCode}
	}
	if err := s.Manager.ConnectAs(userID, profile); err != nil {
		return nil, err
	}

	c := &Client{
		UserID:    userID,
		ChatID:    chatID,
		Manager:   s.Manager,
		Send:      make(chan models.Event, clientBufferSize),
		Bot:       s.Bot,
		Localizer: s.Localizer,
	}
	s.clients[chatID] = c
	s.Hub.Register(c)
	c.Run()
	return c, nil
}

func (s *BotService) handleMessage(msg *tgbotapi.Message) {
	var lang string
	if msg.From != nil {
		lang = msg.From.LanguageCode
	}
	c, err := s.getOrCreateClient(msg.Chat.ID, lang)
	if err != nil {
		slog.Error("failed to connect telegram user", "chat_id", msg.Chat.ID, "err", err)
		return
	}

	if msg.IsCommand() {
		s.handleCommand(c, msg.Command(), msg.CommandArguments())
		return
	}
	if msg.Text == "" {
		s.reply(c, "unsupported_message_type")
		return
	}

	sessionID, ok := s.Manager.Sessions.GetByUser(c.UserID)
	if !ok {
		s.reply(c, "not_in_chat")
		return
	}
	if _, err := s.Manager.SendMessage(sessionID, c.UserID, msg.Text); err != nil {
		s.replyError(c, err)
	}
}

func (s *BotService) handleCommand(c *Client, command, args string) {
	switch command {
	case "start":
		s.startSearch(c)
	case "next":
		if sessionID, ok := s.Manager.Sessions.GetByUser(c.UserID); ok {
			if err := s.Manager.EndChat(sessionID, c.UserID); err != nil {
				slog.Warn("failed to end chat", "user_id", c.UserID, "err", err)
			}
		}
		s.startSearch(c)
	case "stop":
		if sessionID, ok := s.Manager.Sessions.GetByUser(c.UserID); ok {
			if err := s.Manager.EndChat(sessionID, c.UserID); err != nil {
				s.replyError(c, err)
				return
			}
			s.reply(c, "chat_ended_self")
			return
		}
		if s.Manager.Matcher.Dequeue(c.UserID) {
			s.reply(c, "search_stopped")
			return
		}
		s.reply(c, "not_in_chat")
	case "report":
		s.handleReportCommand(c)
	case "interests":
		tags := strings.FieldsFunc(args, func(r rune) bool { return r == ',' || r == ' ' })
		for i := range tags {
			tags[i] = strings.ToLower(tags[i])
		}
		view, err := s.Manager.UpdateProfile(c.UserID, models.ProfileUpdate{Interests: &tags})
		if err != nil {
			s.replyError(c, err)
			return
		}
		s.replyf(c, "interests_updated", strings.Join(view.Interests, ", "))
	case "language":
		s.handleLanguageCommand(c)
	default:
		s.reply(c, "help")
	}
}

func (s *BotService) startSearch(c *Client) {
	res, err := s.Manager.StartChat(c.UserID, models.CategoryText)
	if err != nil {
		if errors.Is(err, chathub.ErrInvalidState) {
			if _, inSession := s.Manager.Sessions.GetByUser(c.UserID); inSession {
				s.reply(c, "already_in_chat")
				return
			}
		}
		s.replyError(c, err)
		return
	}
	if res.Status == chathub.StatusWaiting {
		s.replyf(c, "searching", res.EstimatedWaitSeconds)
	}
}

func (s *BotService) handleReportCommand(c *Client) {
	sessionID, ok := s.Manager.Sessions.GetByUser(c.UserID)
	if !ok {
		s.reply(c, "report_only_in_chat")
		return
	}
	sess, ok := s.Manager.Sessions.GetByID(sessionID)
	if !ok {
		s.reply(c, "report_only_in_chat")
		return
	}

	s.mu.Lock()
	s.pendingReports[c.ChatID] = sess.PartnerOf(c.UserID)
	s.mu.Unlock()

	lang := c.language()
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(reportReasons))
	for _, reason := range reportReasons {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.Localizer.GetString(lang, "report_reason_"+reason), "report_"+reason),
		))
	}
	reply := tgbotapi.NewMessage(c.ChatID, s.Localizer.GetString(lang, "report_reason_prompt"))
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	s.send(c, reply)
}

// handleLanguageCommand sends a message with a keyboard to choose a language.
func (s *BotService) handleLanguageCommand(c *Client) {
	msg := tgbotapi.NewMessage(c.ChatID, s.Localizer.GetString(c.language(), "choose_language"))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("English", "set_lang_en"),
			tgbotapi.NewInlineKeyboardButtonData("Українська", "set_lang_uk"),
		),
	)
	s.send(c, msg)
}

func (s *BotService) handleCallbackQuery(cq *tgbotapi.CallbackQuery) {
	// Respond to the callback query to remove the "loading" state
	if _, err := s.Bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		slog.Warn("failed to answer callback", "err", err)
	}
	if cq.From == nil {
		return
	}
	c, err := s.getOrCreateClient(cq.From.ID, cq.From.LanguageCode)
	if err != nil {
		slog.Error("failed to connect telegram user", "chat_id", cq.From.ID, "err", err)
		return
	}

	switch {
	case strings.HasPrefix(cq.Data, "set_lang_"):
		lang := strings.TrimPrefix(cq.Data, "set_lang_")
		if !s.Localizer.Has(lang) {
			return
		}
		if _, err := s.Manager.UpdateProfile(c.UserID, models.ProfileUpdate{Language: &lang}); err != nil {
			s.replyError(c, err)
			return
		}
		s.reply(c, "language_changed")

	case strings.HasPrefix(cq.Data, "report_"):
		reason := strings.TrimPrefix(cq.Data, "report_")
		s.mu.Lock()
		target, ok := s.pendingReports[c.ChatID]
		delete(s.pendingReports, c.ChatID)
		s.mu.Unlock()
		if !ok {
			return
		}
		if _, err := s.Complaints.HandleReport(c.UserID, target, reason); err != nil {
			s.replyError(c, err)
			return
		}
		s.reply(c, "report_submitted")
	}
}

func (s *BotService) reply(c *Client, key string) {
	s.send(c, tgbotapi.NewMessage(c.ChatID, s.Localizer.GetString(c.language(), key)))
}

func (s *BotService) replyf(c *Client, key string, args ...any) {
	s.send(c, tgbotapi.NewMessage(c.ChatID, fmt.Sprintf(s.Localizer.GetString(c.language(), key), args...)))
}

func (s *BotService) replyError(c *Client, err error) {
	slog.Info("telegram request rejected", "user_id", c.UserID, "err", err)
	switch {
	case errors.Is(err, chathub.ErrSuspended):
		s.reply(c, "account_suspended")
	case errors.Is(err, chathub.ErrNotFound), errors.Is(err, chathub.ErrNotAuthorized):
		s.reply(c, "not_in_chat")
	default:
		s.reply(c, "invalid_request")
	}
}

func (s *BotService) send(c *Client, msg tgbotapi.Chattable) {
	if _, err := s.Bot.Send(msg); err != nil {
		slog.Error("failed to send telegram message", "user_id", c.UserID, "err", err)
	}
}
