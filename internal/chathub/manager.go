package chathub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"strangerlink/backend/internal/config"
	"strangerlink/backend/internal/models"

	"github.com/google/uuid"
)

// Start statuses returned by StartChat.
const (
	StatusMatched = "matched"
	StatusWaiting = "waiting"
)

// BanChecker looks up durable bans, e.g. the Redis ban mirror.
type BanChecker interface {
	IsUserBanned(userID string) (bool, error)
}

// Options configures a ManagerService. Zero values fall back to defaults.
type Options struct {
	Policy            Policy
	ReaperInterval    time.Duration
	InactivityTimeout time.Duration

	Notifier   Notifier
	Archiver   Archiver
	BanChecker BanChecker

	Clock func() time.Time
}

// ManagerService is the entry point transports call into. It wires the
// registry, matcher, session store, relay and reaper over one Store and
// turns their results into outbound events.
type ManagerService struct {
	Store    *Store
	Registry *Registry
	Matcher  *Matcher
	Sessions *SessionStore
	Relay    *Relay
	Reaper   *Reaper

	notifier Notifier
	archiver Archiver
	bans     BanChecker
}

// NewManagerService builds the core with opts.
func NewManagerService(opts Options) *ManagerService {
	var storeOpts []StoreOption
	if opts.Clock != nil {
		storeOpts = append(storeOpts, WithClock(opts.Clock))
	}
	if opts.ReaperInterval <= 0 {
		opts.ReaperInterval = config.DefaultReaperInterval
	}
	if opts.InactivityTimeout <= 0 {
		opts.InactivityTimeout = config.DefaultInactivityTimeout
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = discardNotifier{}
	}

	store := NewStore(storeOpts...)
	return &ManagerService{
		Store:    store,
		Registry: NewRegistry(store),
		Matcher:  NewMatcher(store, opts.Policy),
		Sessions: NewSessionStore(store),
		Relay:    NewRelay(store, notifier),
		Reaper:   NewReaper(store, notifier, opts.Archiver, opts.ReaperInterval, opts.InactivityTimeout),
		notifier: notifier,
		archiver: opts.Archiver,
		bans:     opts.BanChecker,
	}
}

// Run starts the reaper and blocks until ctx is cancelled.
func (m *ManagerService) Run(ctx context.Context) {
	m.Reaper.Run(ctx)
}

// Connect registers a fresh anonymous user and returns its id.
func (m *ManagerService) Connect(profile *models.ProfileUpdate) string {
	userID := uuid.New().String()
	m.Registry.Register(userID, profile)
	slog.Info("client connected", "user_id", userID)
	return userID
}

// ConnectAs registers a user under a transport-chosen id, such as a
// Telegram chat. A durable ban found by the BanChecker suspends the user.
func (m *ManagerService) ConnectAs(userID string, profile *models.ProfileUpdate) error {
	if userID == "" {
		return fmt.Errorf("connect: empty user id: %w", ErrInvalidState)
	}
	m.Registry.Register(userID, profile)

	if m.bans == nil {
		return nil
	}
	banned, err := m.bans.IsUserBanned(userID)
	if err != nil {
		slog.Error("failed to check ban status", "user_id", userID, "err", err)
		return nil
	}
	if banned {
		slog.Warn("suspending user with active ban", "user_id", userID)
		return m.Registry.Suspend(userID)
	}
	return nil
}

// Disconnect removes every trace of userID in one critical section and
// tells the partner, if any, that the session is gone.
func (m *ManagerService) Disconnect(userID string) {
	s := m.Store
	s.mu.Lock()
	ended, had := s.removeUserLocked(userID)
	s.mu.Unlock()

	slog.Info("client disconnected", "user_id", userID)
	if !had {
		return
	}
	partner := ended.PartnerOf(userID)
	m.notifier.Notify(partner, models.Event{
		Type:      models.EventPartnerDisconnected,
		SessionID: ended.ID,
		Reason:    models.ReasonPartnerDisconnected,
	})
	m.archiveEnded(ended, models.ReasonPartnerDisconnected)
}

// StartResult is the outcome of StartChat.
type StartResult struct {
	Status               string              `json:"status"`
	SessionID            string              `json:"session_id"`
	Category             string              `json:"chat_type"`
	PartnerID            string              `json:"partner_id,omitempty"`
	PartnerProfile       *models.ProfileView `json:"partner_profile,omitempty"`
	EstimatedWaitSeconds int                 `json:"estimated_wait_time,omitempty"`
}

// StartChat pairs userID with a waiting user of category or puts it in the
// queue. On a match both participants receive a matched event.
func (m *ManagerService) StartChat(userID, category string) (StartResult, error) {
	out, err := m.Matcher.MatchOrEnqueue(userID, category)
	if err != nil {
		return StartResult{}, err
	}

	if !out.Matched {
		wait := time.Duration(out.QueueLen) * config.EstimatedWaitPerUser[category]
		slog.Info("user waiting for chat", "user_id", userID, "category", category, "queue_len", out.QueueLen)
		return StartResult{
			Status:               StatusWaiting,
			SessionID:            userID,
			Category:             category,
			EstimatedWaitSeconds: int(wait / time.Second),
		}, nil
	}

	sess := out.Session
	partnerID := sess.PartnerOf(userID)
	requester, partner := out.Requester, out.Partner
	m.notifier.Notify(userID, models.Event{
		Type:           models.EventMatched,
		SessionID:      sess.ID,
		Category:       category,
		PartnerID:      partnerID,
		PartnerProfile: &partner,
	})
	m.notifier.Notify(partnerID, models.Event{
		Type:           models.EventMatched,
		SessionID:      sess.ID,
		Category:       category,
		PartnerID:      userID,
		PartnerProfile: &requester,
	})
	if m.archiver != nil {
		if err := m.archiver.SessionStarted(sess, out.SharedInterests); err != nil {
			slog.Error("failed to archive session", "session_id", sess.ID, "err", err)
		}
	}
	slog.Info("chat matched", "session_id", sess.ID, "user_id", userID, "partner_id", partnerID, "category", category)

	return StartResult{
		Status:         StatusMatched,
		SessionID:      sess.ID,
		Category:       category,
		PartnerID:      partnerID,
		PartnerProfile: &partner,
	}, nil
}

// SendMessage appends body to the session and pushes it to the partner.
// The returned view is from the sender's perspective.
func (m *ManagerService) SendMessage(sessionID, userID, body string) (models.MessageView, error) {
	msg, err := m.Sessions.AppendMessage(sessionID, userID, body)
	if err != nil {
		return models.MessageView{}, err
	}
	sess, ok := m.Sessions.GetByID(sessionID)
	if ok {
		partner := sess.PartnerOf(userID)
		view := models.ViewFor(msg, partner)
		m.notifier.Notify(partner, models.Event{
			Type:      models.EventNewMessage,
			SessionID: sessionID,
			Message:   &view,
		})
	}
	if m.archiver != nil {
		if err := m.archiver.MessageAppended(sessionID, msg); err != nil {
			slog.Error("failed to archive message", "session_id", sessionID, "err", err)
		}
	}
	return models.ViewFor(msg, userID), nil
}

// PollMessages returns the messages after since, from userID's perspective,
// and whether the session is still active.
func (m *ManagerService) PollMessages(sessionID, userID string, since *time.Time) ([]models.MessageView, bool, error) {
	return m.Sessions.GetMessages(sessionID, userID, since)
}

// EndChat ends the session on behalf of userID and notifies the partner.
func (m *ManagerService) EndChat(sessionID, userID string) error {
	ended, err := m.Sessions.EndSessionFor(sessionID, userID)
	if err != nil {
		return err
	}
	m.notifier.Notify(ended.PartnerOf(userID), models.Event{
		Type:      models.EventPartnerDisconnected,
		SessionID: sessionID,
		Reason:    models.ReasonPartnerLeft,
	})
	m.archiveEnded(ended, models.ReasonPartnerLeft)
	return nil
}

// ForwardSignal relays an opaque negotiation payload to the partner.
func (m *ManagerService) ForwardSignal(sessionID, userID string, payload json.RawMessage) error {
	return m.Relay.ForwardSignal(sessionID, userID, payload)
}

// SetTyping relays the typing indicator to the partner.
func (m *ManagerService) SetTyping(sessionID, userID string, typing bool) error {
	return m.Relay.SetTyping(sessionID, userID, typing)
}

// SetConnectionQuality records the user's quality tag and, when the user is
// in a session, forwards it to the partner.
func (m *ManagerService) SetConnectionQuality(userID, quality string) error {
	if quality == "" {
		quality = "unknown"
	}
	if err := m.Registry.SetConnectionQuality(userID, quality); err != nil {
		return err
	}
	sessionID, ok := m.Sessions.GetByUser(userID)
	if !ok {
		return nil
	}
	return m.Relay.SetQuality(sessionID, userID, quality)
}

// UpdateProfile merges update into the user's profile and returns the result.
func (m *ManagerService) UpdateProfile(userID string, update models.ProfileUpdate) (models.ProfileView, error) {
	if err := m.Registry.UpdateProfile(userID, update); err != nil {
		return models.ProfileView{}, err
	}
	slog.Info("profile updated", "user_id", userID)
	return m.Registry.Profile(userID)
}

// Profile returns the public profile of userID.
func (m *ManagerService) Profile(userID string) (models.ProfileView, error) {
	return m.Registry.Profile(userID)
}

// Block stops userID and targetID from being matched again.
func (m *ManagerService) Block(userID, targetID string) error {
	return m.Registry.Block(userID, targetID)
}

// Report records a report against targetID.
func (m *ManagerService) Report(reporterID, targetID, reason string) (ReportResult, error) {
	return m.Registry.Report(reporterID, targetID, reason)
}

// Stats returns live counters.
func (m *ManagerService) Stats() Stats {
	return m.Store.Stats()
}

func (m *ManagerService) archiveEnded(sess models.ChatSession, reason string) {
	if m.archiver == nil {
		return
	}
	if err := m.archiver.SessionEnded(sess, reason); err != nil {
		slog.Error("failed to archive session end", "session_id", sess.ID, "err", err)
	}
}
