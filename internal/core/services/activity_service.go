package services

import (
	"context"
	"errors"
	"log"
	"regexp"

	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/adapters/persistence/repositories"
	"aegis-identity/internal/core/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// activityDescriptions maps activity types to human-readable templates.
// Placeholders use {field} syntax; unknown types fall back to the raw
// type string and missing fields render empty - the logger never fails
// on formatting.
var activityDescriptions = map[string]string{
	"login":                   "User {actor} logged in successfully.",
	"login_failed":            "Failed login attempt for {email}.",
	"login_blocked":           "Login blocked for {actor} - account suspended.",
	"logout":                  "User {actor} logged out.",
	"logout_failed":           "Logout attempt with unknown or inactive session by {actor}.",
	"token_refresh":           "User {actor} rotated refresh token.",
	"token_refresh_failed":    "Refresh attempt with invalid or expired token.",
	"create_user_success":     "User {target} created by {actor}.",
	"create_user_failed":      "User creation failed: {reason}.",
	"create_user_denied":      "User creation denied for {actor}: {reason}.",
	"get_user_success":        "User {target} retrieved by {actor}.",
	"get_user_denied":         "Attempt by {actor} to view restricted user {target}.",
	"list_users_success":      "{count} users retrieved by {actor}.",
	"update_user_success":     "User {target} updated by {actor}.",
	"update_user_failed":      "Update of user {target} failed: {reason}.",
	"update_user_denied":      "Attempt by {actor} to edit restricted user {target}.",
	"delete_user_success":     "User {target} deleted by {actor}.",
	"delete_user_denied":      "Attempt by {actor} to delete restricted user {target}.",
	"change_password_success": "User {actor} changed their password.",
	"change_password_failed":  "Password change failed for {actor}: {reason}.",
	"create_staff_success":    "Staff profile ({role}, {department}) created for {target} by {actor}.",
	"create_staff_denied":     "Staff creation denied for {actor}: {reason}.",
	"update_staff_success":    "Staff profile of {target} updated by {actor}.",
	"update_staff_denied":     "Attempt by {actor} to edit restricted staff profile of {target}.",
	"delete_staff_success":    "Staff profile of {target} deleted by {actor}.",
	"delete_staff_denied":     "Attempt by {actor} to delete restricted staff profile of {target}.",
	"permission_denied":       "Permission '{permission}' denied for {actor}.",
	"view_activity":           "Activity log of {target} viewed by {actor}.",
	"apikey_created":          "API key created by {actor}.",
	"apikey_deleted":          "API key deleted by {actor}.",
	"kyc_submitted":           "KYC document submitted by {actor}.",
	"kyc_approved":            "KYC of {target} approved by {actor}.",
	"kyc_rejected":            "KYC of {target} rejected by {actor}.",
}

var placeholderPattern = regexp.MustCompile(`\{[a-zA-Z_]+\}`)

// renderDescription fills a template with the available fields. Missing
// fields substitute empty rather than erroring.
func renderDescription(activityType string, fields map[string]string) string {
	tpl, ok := activityDescriptions[activityType]
	if !ok {
		return activityType
	}
	return placeholderPattern.ReplaceAllStringFunc(tpl, func(match string) string {
		key := match[1 : len(match)-1]
		return fields[key]
	})
}

// ClientMeta carries per-request metadata into audit records. Both
// fields are nullable.
type ClientMeta struct {
	IPAddress *string
	UserAgent *string
}

// RecordInput describes one audit record
type RecordInput struct {
	Actor        *models.User // nil for anonymous/failed attempts
	Target       *models.User // nil when the action has no target user
	ActivityType string
	Meta         ClientMeta
	Fields       map[string]string
}

// ActivityService is the audit logging pipeline. Every privileged
// action or attempt - success, denial, or error - passes through here.
type ActivityService struct {
	logRepo     repositories.ActivityLogRepository
	staffRepo   repositories.StaffRepository
	restriction *RestrictionService
}

// NewActivityService creates a new activity service
func NewActivityService(
	logRepo repositories.ActivityLogRepository,
	staffRepo repositories.StaffRepository,
	restriction *RestrictionService,
) *ActivityService {
	return &ActivityService{
		logRepo:     logRepo,
		staffRepo:   staffRepo,
		restriction: restriction,
	}
}

// Record writes an audit record outside any caller transaction
func (s *ActivityService) Record(ctx context.Context, input RecordInput) (*models.ActivityLog, error) {
	return s.RecordTx(ctx, s.logRepo, input)
}

// RecordTx writes an audit record through the given repository, which
// callers bind to their transaction when the audit row must land
// atomically with the operation it describes. A write failure is a
// persistence error - it is never swallowed.
func (s *ActivityService) RecordTx(ctx context.Context, logRepo repositories.ActivityLogRepository, input RecordInput) (*models.ActivityLog, error) {
	fields := map[string]string{}
	for k, v := range input.Fields {
		fields[k] = v
	}
	if input.Actor != nil {
		fields["actor"] = input.Actor.Username
	}
	if input.Target != nil {
		fields["target"] = input.Target.Username
	}

	// Cross-actor records replay the view restriction so audit
	// visibility cannot bypass the role hierarchy.
	if input.Actor != nil && input.Target != nil && input.Actor.ID != input.Target.ID {
		if err := s.enforceView(ctx, input.Actor.ID, input.Target.ID); err != nil {
			return nil, err
		}
	}

	entry := &models.ActivityLog{
		ActivityType: input.ActivityType,
		Description:  renderDescription(input.ActivityType, fields),
		IPAddress:    input.Meta.IPAddress,
		UserAgent:    input.Meta.UserAgent,
	}
	if input.Actor != nil {
		actorID := input.Actor.ID
		entry.UserID = &actorID
	}

	if err := logRepo.Create(ctx, entry); err != nil {
		log.Printf("audit write failed (%s): %v", input.ActivityType, err)
		return nil, domain.ErrPersistence
	}

	return entry, nil
}

// enforceView runs the restriction engine's view check between the two
// users' staff profiles. Users without a staff profile enforce nothing
// on their side.
func (s *ActivityService) enforceView(ctx context.Context, actorID, targetID uuid.UUID) error {
	actorStaff, err := s.staffRepo.GetByUserID(ctx, actorID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	targetStaff, err := s.staffRepo.GetByUserID(ctx, targetID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return s.restriction.Enforce(actorStaff, targetStaff, ActionView)
}

// ListInput parameters for audit log reads
type ListInput struct {
	TargetUserID uuid.UUID
	Offset       int
	Limit        int
}

// ListFor returns audit records for a target user on behalf of an
// actor. Cross-actor reads pass the same view restriction as writes,
// and the read itself is audited.
func (s *ActivityService) ListFor(ctx context.Context, actor *models.User, input ListInput, meta ClientMeta) ([]*models.ActivityLog, int64, error) {
	if actor.ID != input.TargetUserID {
		if err := s.enforceView(ctx, actor.ID, input.TargetUserID); err != nil {
			return nil, 0, err
		}
	}

	entries, total, err := s.logRepo.ListByUserID(ctx, input.TargetUserID, input.Offset, input.Limit)
	if err != nil {
		return nil, 0, err
	}

	if actor.ID != input.TargetUserID {
		if _, err := s.Record(ctx, RecordInput{
			Actor:        actor,
			ActivityType: "view_activity",
			Meta:         meta,
			Fields:       map[string]string{"target": input.TargetUserID.String()},
		}); err != nil {
			return nil, 0, err
		}
	}

	return entries, total, nil
}
