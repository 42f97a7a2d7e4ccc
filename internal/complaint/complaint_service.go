// Package complaint turns user reports into archived complaints and mirrors
// automatic bans to durable storage so they outlive the connection.
package complaint

import (
	"log/slog"
	"strings"
	"time"

	"strangerlink/backend/internal/chathub"
	"strangerlink/backend/internal/config"
	"strangerlink/backend/internal/models"
	"strangerlink/backend/internal/storage"

	"github.com/google/uuid"
)

// Service handles the business logic for complaints.
type Service struct {
	Manager *chathub.ManagerService
	Storage storage.Storage

	now func() time.Time
}

// NewService creates a new complaint service.
func NewService(m *chathub.ManagerService, s storage.Storage) *Service {
	return &Service{Manager: m, Storage: s, now: time.Now}
}

// HandleReport records reporterID's report against targetID. The in-memory
// registry decides about the ban; the archive and the ban mirror are best
// effort and their failures are only logged.
func (s *Service) HandleReport(reporterID, targetID, reason string) (chathub.ReportResult, error) {
	res, err := s.Manager.Report(reporterID, targetID, reason)
	if err != nil {
		return res, err
	}

	roomID, _ := s.Manager.Sessions.GetByUser(reporterID)
	c := &models.Complaint{
		ComplaintID:    uuid.New().String(),
		ReporterID:     reporterID,
		ReportedUserID: targetID,
		RoomID:         roomID,
		Reason:         reason,
		Severity:       Severity(reason),
		ReporterCount:  res.Reporters,
		Banned:         res.NewlyBanned,
		CreatedAt:      s.now(),
	}
	if err := s.Storage.SaveComplaint(c); err != nil {
		slog.Error("failed to archive complaint", "user_id", targetID, "err", err)
	}

	if res.NewlyBanned {
		if err := s.Storage.MarkBanned(targetID, reason, config.BanMirrorTTL); err != nil {
			slog.Error("failed to mirror ban", "user_id", targetID, "err", err)
		}
	}
	return res, nil
}

// Severity returns the configured severity of a report reason.
func Severity(reason string) string {
	if sev, ok := config.ReportSeverity[strings.ToLower(strings.TrimSpace(reason))]; ok {
		return sev
	}
	return "low"
}
