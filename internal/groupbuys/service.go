package groupbuys

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mandisetu/mandisetu-backend/internal/notifications"
	"github.com/mandisetu/mandisetu-backend/internal/orders"
	dbpkg "github.com/mandisetu/mandisetu-backend/pkg/db"
	"github.com/mandisetu/mandisetu-backend/pkg/db/models"
	"github.com/mandisetu/mandisetu-backend/pkg/enums"
	pkgerrors "github.com/mandisetu/mandisetu-backend/pkg/errors"
	"github.com/mandisetu/mandisetu-backend/pkg/logger"
	"github.com/mandisetu/mandisetu-backend/pkg/outbox"
	"github.com/mandisetu/mandisetu-backend/pkg/outbox/payloads"
	"github.com/mandisetu/mandisetu-backend/pkg/pagination"
)

const joinSuccessMessage = "Successfully joined the deal!"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type viewInvalidator interface {
	AfterJoin(ctx context.Context, groupBuyID, userID uuid.UUID) error
	AfterAccept(ctx context.Context, groupBuyID, supplierID uuid.UUID) error
	AfterStatusChange(ctx context.Context, groupBuyID uuid.UUID, userIDs []uuid.UUID) error
}

type workflowMetrics interface {
	ObserveJoin(outcome string, duration time.Duration)
	IncTransition(to string)
}

// Service executes the join/accept/status workflows.
type Service interface {
	Join(ctx context.Context, input JoinInput) (*JoinResult, error)
	Accept(ctx context.Context, input AcceptInput) (*GroupBuyDTO, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*GroupBuyDTO, error)
	ListOpen(ctx context.Context, hubID *uuid.UUID, limit int, cursor string) (*ListResult, error)
	ListForSupplier(ctx context.Context, supplierID uuid.UUID, status *enums.GroupBuyStatus, limit int, cursor string) (*ListResult, error)
}

type service struct {
	tx         txRunner
	repo       Repository
	ordersRepo orders.Repository
	notifSvc   notifications.Service
	outbox     outboxPublisher
	views      viewInvalidator
	metrics    workflowMetrics
	logg       *logger.Logger
}

// NewService wires the group-buy workflow service.
func NewService(
	tx txRunner,
	repo Repository,
	ordersRepo orders.Repository,
	notifSvc notifications.Service,
	publisher outboxPublisher,
	views viewInvalidator,
	metrics workflowMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("group-buy repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if notifSvc == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:         tx,
		repo:       repo,
		ordersRepo: ordersRepo,
		notifSvc:   notifSvc,
		outbox:     publisher,
		views:      views,
		metrics:    metrics,
		logg:       logg,
	}, nil
}

// Join commits a vendor's quantity to a deal. The read, the counter increment,
// the order snapshot, the notification, and the outbox event all share one
// transaction; a failure at any step leaves no trace of the join.
func (s *service) Join(ctx context.Context, input JoinInput) (result *JoinResult, err error) {
	start := time.Now()
	defer func() {
		s.observeJoin(err, time.Since(start))
	}()

	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.GroupBuyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group buy id required")
	}
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		groupBuy, err := repo.FindByID(ctx, input.GroupBuyID)
		if err != nil {
			return err
		}
		if groupBuy == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "group buy not found")
		}
		if groupBuy.Status != enums.GroupBuyStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "group buy is not open for joining")
		}

		applied, err := repo.ApplyJoin(ctx, input.GroupBuyID, input.Quantity)
		if err != nil {
			return err
		}
		if !applied {
			// The deal left the open state between the read and the update.
			return pkgerrors.New(pkgerrors.CodeStateConflict, "group buy is not open for joining")
		}

		// Re-read after the increment: the snapshot's counters may be stale
		// when another join committed between the read and the update, and the
		// emitted event must carry the totals this join actually produced.
		refreshed, err := repo.FindByID(ctx, input.GroupBuyID)
		if err != nil {
			return err
		}
		if refreshed == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "group buy not found")
		}

		total := groupBuy.PricePerKg.Mul(input.Quantity).Round(2)
		order, err := ordersRepo.Create(ctx, &models.Order{
			UserID:      input.UserID,
			GroupBuyID:  groupBuy.ID,
			Quantity:    input.Quantity,
			ProductName: groupBuy.ProductName,
			PricePerKg:  groupBuy.PricePerKg,
			Total:       total,
			Status:      enums.OrderStatusConfirmed,
		})
		if err != nil {
			return err
		}

		href := fmt.Sprintf("/orders/%s/tracking", order.ID)
		if _, err := s.notifSvc.CreateInTx(ctx, tx, notifications.CreateInput{
			UserID: input.UserID,
			Type:   enums.NotificationTypeOrderUpdate,
			Title:  "Order confirmed",
			Body:   fmt.Sprintf("Your order for %s kg of %s is confirmed.", input.Quantity.String(), groupBuy.ProductName),
			Href:   &href,
		}); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventGroupBuyJoined,
			AggregateType: enums.AggregateGroupBuy,
			AggregateID:   groupBuy.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: string(enums.UserRoleVendor)},
			Data: payloads.GroupBuyJoinedEvent{
				GroupBuyID:      groupBuy.ID,
				OrderID:         order.ID,
				VendorID:        input.UserID,
				HubID:           groupBuy.HubID,
				Quantity:        input.Quantity,
				Total:           total,
				CurrentQuantity: refreshed.CurrentQuantity,
				VendorCount:     refreshed.VendorCount,
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		result = &JoinResult{
			OrderID:    order.ID,
			GroupBuyID: groupBuy.ID,
			Quantity:   input.Quantity,
			Total:      total,
			Message:    joinSuccessMessage,
		}
		return nil
	})
	if txErr != nil {
		if dbpkg.IsSerializationFailure(txErr) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, txErr, "too many concurrent joins, please retry")
		}
		return nil, txErr
	}

	s.invalidateAfterJoin(ctx, input.GroupBuyID, input.UserID)
	return result, nil
}

// Accept claims a deal for a supplier and moves it to processing. First accept
// wins; a second supplier gets a state conflict.
func (s *service) Accept(ctx context.Context, input AcceptInput) (*GroupBuyDTO, error) {
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.GroupBuyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group buy id required")
	}

	var accepted *models.GroupBuy
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		groupBuy, err := repo.FindByID(ctx, input.GroupBuyID)
		if err != nil {
			return err
		}
		if groupBuy == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "group buy not found")
		}
		if groupBuy.Status != enums.GroupBuyStatusOpen || groupBuy.SupplierID != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "group buy already accepted")
		}

		claimed, err := repo.AcceptDemand(ctx, input.GroupBuyID, input.SupplierID)
		if err != nil {
			return err
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "group buy already accepted")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventGroupBuyAccepted,
			AggregateType: enums.AggregateGroupBuy,
			AggregateID:   groupBuy.ID,
			Actor:         &outbox.ActorRef{UserID: input.SupplierID, Role: string(enums.UserRoleSupplier)},
			Data: payloads.GroupBuyAcceptedEvent{
				GroupBuyID: groupBuy.ID,
				SupplierID: input.SupplierID,
				AcceptedAt: time.Now().UTC(),
			},
			Version: 1,
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return err
		}

		accepted, err = repo.FindByID(ctx, input.GroupBuyID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncTransition(string(enums.GroupBuyStatusProcessing))
	}
	if s.views != nil {
		if err := s.views.AfterAccept(ctx, input.GroupBuyID, input.SupplierID); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithGroupBuyID(ctx, input.GroupBuyID.String()), "accept view invalidation failed")
		}
	}

	dto := toDTO(*accepted)
	return &dto, nil
}

// UpdateStatus applies a fulfillment-driven lifecycle transition. Transitions
// outside open→processing→{closed, fulfilled} are rejected.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*GroupBuyDTO, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.GroupBuyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group buy id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid group buy status")
	}

	var (
		updated      *models.GroupBuy
		participants []uuid.UUID
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		groupBuy, err := repo.FindByID(ctx, input.GroupBuyID)
		if err != nil {
			return err
		}
		if groupBuy == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "group buy not found")
		}
		if !groupBuy.Status.CanTransitionTo(input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot transition group buy from %s to %s", groupBuy.Status, input.Status))
		}

		moved, err := repo.SetStatus(ctx, input.GroupBuyID, groupBuy.Status, input.Status)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "group buy status changed concurrently")
		}

		groupOrders, err := ordersRepo.ListForGroupBuy(ctx, input.GroupBuyID)
		if err != nil {
			return err
		}
		orderIDs := make([]uuid.UUID, 0, len(groupOrders))
		seen := make(map[uuid.UUID]struct{}, len(groupOrders))
		for _, order := range groupOrders {
			orderIDs = append(orderIDs, order.ID)
			if _, ok := seen[order.UserID]; !ok {
				seen[order.UserID] = struct{}{}
				participants = append(participants, order.UserID)
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventGroupBuyStatusChanged,
			AggregateType: enums.AggregateGroupBuy,
			AggregateID:   groupBuy.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: string(input.ActorRole)},
			Data: payloads.GroupBuyStatusChangedEvent{
				GroupBuyID: groupBuy.ID,
				From:       groupBuy.Status,
				To:         input.Status,
				OrderIDs:   orderIDs,
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		updated, err = repo.FindByID(ctx, input.GroupBuyID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncTransition(string(input.Status))
	}
	if s.views != nil {
		if err := s.views.AfterStatusChange(ctx, input.GroupBuyID, participants); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithGroupBuyID(ctx, input.GroupBuyID.String()), "status view invalidation failed")
		}
	}

	dto := toDTO(*updated)
	return &dto, nil
}

func (s *service) ListOpen(ctx context.Context, hubID *uuid.UUID, limit int, cursor string) (*ListResult, error) {
	params := ListParams{HubID: hubID, Limit: limit, Now: time.Now()}
	if cursor != "" {
		parsed, err := pagination.ParseCursor(cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = parsed
	}

	rows, next, err := s.repo.ListOpen(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list group buys")
	}
	return buildListResult(rows, next), nil
}

func (s *service) ListForSupplier(ctx context.Context, supplierID uuid.UUID, status *enums.GroupBuyStatus, limit int, cursor string) (*ListResult, error) {
	if supplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	params := ListParams{Status: status, Limit: limit}
	if cursor != "" {
		parsed, err := pagination.ParseCursor(cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = parsed
	}

	rows, next, err := s.repo.ListForSupplier(ctx, supplierID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list supplier group buys")
	}
	return buildListResult(rows, next), nil
}

func buildListResult(rows []models.GroupBuy, next *pagination.Cursor) *ListResult {
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: toDTOs(rows), Cursor: cursor}
}

func (s *service) observeJoin(err error, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
		if typed := pkgerrors.As(err); typed != nil {
			switch typed.Code() {
			case pkgerrors.CodeConflict, pkgerrors.CodeStateConflict:
				outcome = "conflict"
			case pkgerrors.CodeValidation, pkgerrors.CodeUnauthorized, pkgerrors.CodeNotFound:
				outcome = "rejected"
			}
		}
	}
	s.metrics.ObserveJoin(outcome, duration)
}

func (s *service) invalidateAfterJoin(ctx context.Context, groupBuyID, userID uuid.UUID) {
	if s.views == nil {
		return
	}
	if err := s.views.AfterJoin(ctx, groupBuyID, userID); err != nil && s.logg != nil {
		logCtx := s.logg.WithGroupBuyID(ctx, groupBuyID.String())
		s.logg.Warn(logCtx, "join view invalidation failed")
	}
}
