package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/notify"
	"github.com/Freeeeeet/coach_scheduler/internal/repository"
	"github.com/Freeeeeet/coach_scheduler/internal/scheduling"
)

const maxDescriptionLength = 1000

type CreateActionItemRequest struct {
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

// UpdateActionItemRequest описание и срок меняет коуч, статус любая сторона
type UpdateActionItemRequest struct {
	Description *string                 `json:"description"`
	DueDate     *time.Time              `json:"due_date"`
	Status      *model.ActionItemStatus `json:"status"`
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// UpdateReviewRequest комментарий меняет менти, ответ один раз даёт коуч
type UpdateReviewRequest struct {
	Comment       *string `json:"comment"`
	CoachResponse *string `json:"coach_response"`
}

// ArtifactService заметки, задачи и отзыв после сессии
type ArtifactService struct {
	Deps
}

func NewArtifactService(d Deps) *ArtifactService {
	return &ArtifactService{Deps: d}
}

func (s *ArtifactService) session(ctx context.Context, actor model.Actor, sessionID int64, action scheduling.Action) (*model.Session, error) {
	session, err := s.Store.Repos().Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
	}
	if !scheduling.CanPerform(action, actor, session.CoachID, session.MenteeID) {
		return nil, fmt.Errorf("%w: %s not allowed for %s", ErrUnauthorized, action, actor.Role)
	}
	return session, nil
}

func (s *ArtifactService) item(ctx context.Context, sessionID, itemID int64) (*model.ActionItem, error) {
	item, err := s.Store.Repos().ActionItems.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get action item: %w", err)
	}
	if item == nil || item.SessionID != sessionID {
		return nil, fmt.Errorf("%w: action item %d", ErrNotFound, itemID)
	}
	return item, nil
}

// ListActionItems задачи сессии по сроку, затем по порядку создания
func (s *ArtifactService) ListActionItems(ctx context.Context, actor model.Actor, sessionID int64) ([]*model.ActionItem, error) {
	if _, err := s.session(ctx, actor, sessionID, scheduling.ActionView); err != nil {
		return nil, err
	}
	items, err := s.Store.Repos().ActionItems.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list action items: %w", err)
	}
	if items == nil {
		items = []*model.ActionItem{}
	}
	return items, nil
}

// CreateActionItem задачу создаёт коуч, когда сессия идёт или завершена
func (s *ArtifactService) CreateActionItem(ctx context.Context, actor model.Actor, sessionID int64, req CreateActionItemRequest) (*model.ActionItem, error) {
	session, err := s.session(ctx, actor, sessionID, scheduling.ActionCreateActionItem)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusInProgress && session.Status != model.SessionStatusCompleted {
		return nil, fmt.Errorf("%w: action items can be added once the session has started", ErrInvalidTransition)
	}

	description, err := cleanDescription(req.Description)
	if err != nil {
		return nil, err
	}

	item := &model.ActionItem{
		SessionID:   sessionID,
		Description: description,
		Status:      model.ActionItemStatusPending,
		DueDate:     req.DueDate,
	}
	if err := s.Store.Repos().ActionItems.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create action item: %w", err)
	}

	s.Logger.Info("Action item created",
		zap.Int64("session_id", sessionID),
		zap.Int64("item_id", item.ID),
	)

	return item, nil
}

// UpdateActionItem правка задачи. Статус переключает любая сторона,
// completed_at ставится и снимается вместе со статусом
func (s *ArtifactService) UpdateActionItem(ctx context.Context, actor model.Actor, sessionID, itemID int64, req UpdateActionItemRequest) (*model.ActionItem, error) {
	if req.Description == nil && req.DueDate == nil && req.Status == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	action := scheduling.ActionToggleActionItem
	if req.Description != nil || req.DueDate != nil {
		action = scheduling.ActionEditActionItem
	}
	if _, err := s.session(ctx, actor, sessionID, action); err != nil {
		return nil, err
	}

	item, err := s.item(ctx, sessionID, itemID)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		description, err := cleanDescription(*req.Description)
		if err != nil {
			return nil, err
		}
		item.Description = description
	}
	if req.DueDate != nil {
		item.DueDate = req.DueDate
	}
	if req.Status != nil {
		switch *req.Status {
		case model.ActionItemStatusCompleted:
			if item.Status != model.ActionItemStatusCompleted {
				now := s.Clock.Now()
				item.CompletedAt = &now
			}
		case model.ActionItemStatusPending:
			item.CompletedAt = nil
		default:
			return nil, fmt.Errorf("%w: unknown action item status %q", ErrValidation, *req.Status)
		}
		item.Status = *req.Status
	}

	if err := s.Store.Repos().ActionItems.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update action item: %w", err)
	}
	return item, nil
}

// DeleteActionItem удаляет только коуч
func (s *ArtifactService) DeleteActionItem(ctx context.Context, actor model.Actor, sessionID, itemID int64) error {
	if _, err := s.session(ctx, actor, sessionID, scheduling.ActionDeleteActionItem); err != nil {
		return err
	}
	if _, err := s.item(ctx, sessionID, itemID); err != nil {
		return err
	}
	if err := s.Store.Repos().ActionItems.Delete(ctx, itemID); err != nil {
		return fmt.Errorf("delete action item: %w", err)
	}

	s.Logger.Info("Action item deleted",
		zap.Int64("session_id", sessionID),
		zap.Int64("item_id", itemID),
	)
	return nil
}

func cleanDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", fmt.Errorf("%w: description is required", ErrValidation)
	}
	if len([]rune(description)) > maxDescriptionLength {
		return "", fmt.Errorf("%w: description is longer than %d characters", ErrValidation, maxDescriptionLength)
	}
	return description, nil
}

// CreateReview один отзыв на сессию, только от менти и только после завершения
func (s *ArtifactService) CreateReview(ctx context.Context, actor model.Actor, sessionID int64, req CreateReviewRequest) (*model.Review, error) {
	session, err := s.session(ctx, actor, sessionID, scheduling.ActionCreateReview)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusCompleted {
		return nil, fmt.Errorf("%w: only completed sessions can be reviewed", ErrInvalidTransition)
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}

	review := &model.Review{
		SessionID: sessionID,
		CoachID:   session.CoachID,
		MenteeID:  session.MenteeID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	}
	err = s.Store.Repos().Reviews.Create(ctx, review)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("%w: session %d already has a review", ErrDuplicateReview, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.Logger.Info("Review received",
		zap.Int64("session_id", sessionID),
		zap.Int("rating", review.Rating),
	)

	s.Notifier.Emit(notify.Event{
		Type:        notify.EventReviewReceived,
		SessionID:   sessionID,
		BookingID:   session.BookingID,
		CoachID:     session.CoachID,
		MenteeID:    session.MenteeID,
		Recipients:  []int64{session.CoachID},
		ScheduledAt: session.ScheduledAt,
		Rating:      review.Rating,
	})

	return review, nil
}

// UpdateReview комментарий менти или ответ коуча. Оценка не меняется
func (s *ArtifactService) UpdateReview(ctx context.Context, actor model.Actor, sessionID int64, req UpdateReviewRequest) (*model.Review, error) {
	if req.Comment == nil && req.CoachResponse == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if req.Comment != nil && req.CoachResponse != nil {
		return nil, fmt.Errorf("%w: comment and coach response are set by different parties", ErrValidation)
	}

	action := scheduling.ActionEditReviewComment
	if req.CoachResponse != nil {
		action = scheduling.ActionRespondReview
	}
	if _, err := s.session(ctx, actor, sessionID, action); err != nil {
		return nil, err
	}

	repos := s.Store.Repos()
	review, err := repos.Reviews.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review == nil {
		return nil, fmt.Errorf("%w: session %d has no review", ErrNotFound, sessionID)
	}

	if req.Comment != nil {
		review.Comment = strings.TrimSpace(*req.Comment)
		if err := repos.Reviews.UpdateComment(ctx, review); err != nil {
			return nil, fmt.Errorf("update review: %w", err)
		}
		return review, nil
	}

	if review.CoachResponse != nil {
		return nil, fmt.Errorf("%w: review already has a response", ErrInvalidTransition)
	}
	response := strings.TrimSpace(*req.CoachResponse)
	if response == "" {
		return nil, fmt.Errorf("%w: response is required", ErrValidation)
	}
	now := s.Clock.Now()
	review.CoachResponse = &response
	review.RespondedAt = &now

	applied, err := repos.Reviews.SetCoachResponse(ctx, review)
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	if !applied {
		return nil, fmt.Errorf("%w: review already has a response", ErrInvalidTransition)
	}
	return review, nil
}
