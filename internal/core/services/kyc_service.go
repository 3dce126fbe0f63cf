package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"aegis-identity/internal/adapters/persistence/models"
	"aegis-identity/internal/adapters/persistence/repositories"
	"aegis-identity/internal/core/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KYCService handles identity verification submissions and reviews
type KYCService struct {
	kycRepo     repositories.KYCRepository
	userRepo    repositories.UserRepository
	activitySvc *ActivityService
	txManager   repositories.TxManager
}

// NewKYCService creates a new KYC service
func NewKYCService(
	kycRepo repositories.KYCRepository,
	userRepo repositories.UserRepository,
	activitySvc *ActivityService,
	txManager repositories.TxManager,
) *KYCService {
	return &KYCService{
		kycRepo:     kycRepo,
		userRepo:    userRepo,
		activitySvc: activitySvc,
		txManager:   txManager,
	}
}

// SubmitKYCInput represents a verification document submission
type SubmitKYCInput struct {
	DocumentType string `json:"document_type" validate:"required"`
	DocumentRef  string `json:"document_ref" validate:"required"`
}

// ReviewKYCInput represents a reviewer decision
type ReviewKYCInput struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// Submit records a verification document for the calling user and moves
// them into pending review. A submission that is already pending must be
// decided before a new one is accepted.
func (s *KYCService) Submit(ctx context.Context, actor *models.User, input *SubmitKYCInput, meta ClientMeta) (*models.KYCVerification, error) {
	latest, err := s.kycRepo.GetLatestByUserID(ctx, actor.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if latest != nil && latest.Status == models.KYCStatusPending {
		return nil, fmt.Errorf("%w: a submission is already pending review", domain.ErrConflict)
	}
	if actor.IsVerified {
		return nil, fmt.Errorf("%w: account is already verified", domain.ErrConflict)
	}

	kyc := &models.KYCVerification{
		UserID:       actor.ID,
		DocumentType: input.DocumentType,
		DocumentRef:  input.DocumentRef,
		Status:       models.KYCStatusPending,
	}

	err = s.txManager.RunInTx(ctx, func(r *repositories.Repositories) error {
		if err := r.KYC.Create(ctx, kyc); err != nil {
			return err
		}

		actor.Status = models.UserStatusPendingKYC
		if err := r.Users.Update(ctx, actor); err != nil {
			return err
		}

		_, err := s.activitySvc.RecordTx(ctx, r.ActivityLogs, RecordInput{
			Actor:        actor,
			ActivityType: "kyc_submitted",
			Meta:         meta,
			Fields:       map[string]string{"document_type": input.DocumentType},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ KYC submitted: user=%s type=%s", actor.Username, input.DocumentType)
	return kyc, nil
}

// Review decides a pending submission. Approval activates and verifies
// the account; rejection parks it until the user resubmits. The user
// status flip, the review row and the audit entry land together.
func (s *KYCService) Review(ctx context.Context, actor *models.User, kycID uuid.UUID, input *ReviewKYCInput, meta ClientMeta) (*models.KYCVerification, error) {
	kyc, err := s.kycRepo.GetByID(ctx, kycID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if kyc.Status != models.KYCStatusPending {
		return nil, fmt.Errorf("%w: submission already decided", domain.ErrConflict)
	}

	subject, err := s.userRepo.GetByID(ctx, kyc.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	activityType := "kyc_rejected"
	if input.Approve {
		activityType = "kyc_approved"
	}

	err = s.txManager.RunInTx(ctx, func(r *repositories.Repositories) error {
		if input.Approve {
			kyc.Status = models.KYCStatusApproved
			subject.Status = models.UserStatusActive
			subject.IsVerified = true
		} else {
			kyc.Status = models.KYCStatusRejected
			subject.Status = models.UserStatusKYCRejected
		}
		kyc.ReviewedBy = &actor.ID
		kyc.Note = input.Note

		if err := r.KYC.Update(ctx, kyc); err != nil {
			return err
		}
		if err := r.Users.Update(ctx, subject); err != nil {
			return err
		}

		_, err := s.activitySvc.RecordTx(ctx, r.ActivityLogs, RecordInput{
			Actor:        actor,
			Target:       subject,
			ActivityType: activityType,
			Meta:         meta,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ KYC reviewed: user=%s decision=%s reviewer=%s", subject.Username, kyc.Status, actor.Username)
	return kyc, nil
}

// ListForUser returns the submission history for one user
func (s *KYCService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.KYCVerification, error) {
	return s.kycRepo.ListByUserID(ctx, userID)
}
