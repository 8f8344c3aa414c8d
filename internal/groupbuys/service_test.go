package groupbuys

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mandisetu/mandisetu-backend/internal/notifications"
	"github.com/mandisetu/mandisetu-backend/internal/orders"
	"github.com/mandisetu/mandisetu-backend/pkg/db/models"
	"github.com/mandisetu/mandisetu-backend/pkg/enums"
	pkgerrors "github.com/mandisetu/mandisetu-backend/pkg/errors"
	"github.com/mandisetu/mandisetu-backend/pkg/outbox"
	"github.com/mandisetu/mandisetu-backend/pkg/outbox/payloads"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingViews struct {
	joins    int
	accepts  int
	statuses int
}

func (v *recordingViews) AfterJoin(context.Context, uuid.UUID, uuid.UUID) error {
	v.joins++
	return nil
}

func (v *recordingViews) AfterAccept(context.Context, uuid.UUID, uuid.UUID) error {
	v.accepts++
	return nil
}

func (v *recordingViews) AfterStatusChange(context.Context, uuid.UUID, []uuid.UUID) error {
	v.statuses++
	return nil
}

type recordingMetrics struct {
	outcomes    []string
	transitions []string
}

func (m *recordingMetrics) ObserveJoin(outcome string, _ time.Duration) {
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMetrics) IncTransition(to string) {
	m.transitions = append(m.transitions, to)
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (o *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	o.events = append(o.events, event)
	return nil
}

func (o *recordingOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	return o.Emit(ctx, tx, event)
}

// racingJoinRepo lands another vendor's committed increment between the
// snapshot read and this join's own increment.
type racingJoinRepo struct {
	Repository
	db    *gorm.DB
	extra decimal.Decimal
}

func (r *racingJoinRepo) WithTx(tx *gorm.DB) Repository {
	return &racingJoinRepo{Repository: r.Repository.WithTx(tx), db: tx, extra: r.extra}
}

func (r *racingJoinRepo) ApplyJoin(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) (bool, error) {
	err := r.db.WithContext(ctx).
		Model(&models.GroupBuy{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_quantity": gorm.Expr("current_quantity + ?", r.extra),
			"vendor_count":     gorm.Expr("vendor_count + 1"),
		}).Error
	if err != nil {
		return false, err
	}
	return r.Repository.ApplyJoin(ctx, id, quantity)
}

type failingOutbox struct{}

func (failingOutbox) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}

func (failingOutbox) EmitIfNotExists(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}

type serviceHarness struct {
	db      *gorm.DB
	svc     Service
	views   *recordingViews
	metrics *recordingMetrics
}

func newServiceHarness(t *testing.T, override outboxPublisher) *serviceHarness {
	t.Helper()

	db := setupGroupBuyTestDB(t)
	notifSvc, err := notifications.NewService(notifications.NewRepository(db))
	require.NoError(t, err)

	var publisher outboxPublisher = outbox.NewService(outbox.NewRepository(db), nil)
	if override != nil {
		publisher = override
	}

	views := &recordingViews{}
	metrics := &recordingMetrics{}
	svc, err := NewService(
		gormTxRunner{db: db},
		NewRepository(db),
		orders.NewRepository(db),
		notifSvc,
		publisher,
		views,
		metrics,
		nil,
	)
	require.NoError(t, err)

	return &serviceHarness{db: db, svc: svc, views: views, metrics: metrics}
}

func (h *serviceHarness) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.db.Model(model).Count(&count).Error)
	return count
}

func TestJoinHappyPath(t *testing.T) {
	h := newServiceHarness(t, nil)
	groupBuy := createGroupBuy(t, h.db, enums.GroupBuyStatusOpen, nil)
	userID := uuid.New()

	result, err := h.svc.Join(context.Background(), JoinInput{
		GroupBuyID: groupBuy.ID,
		UserID:     userID,
		Quantity:   decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Successfully joined the deal!", result.Message)
	assert.True(t, result.Total.Equal(decimal.NewFromInt(100)), "got total %s", result.Total)

	updated := reloadGroupBuy(t, h.db, groupBuy.ID)
	assert.True(t, updated.CurrentQuantity.Equal(decimal.NewFromInt(35)), "got %s", updated.CurrentQuantity)
	assert.Equal(t, 4, updated.VendorCount)

	var order models.Order
	require.NoError(t, h.db.Where("id = ?", result.OrderID).First(&order).Error)
	assert.Equal(t, userID, order.UserID)
	assert.Equal(t, groupBuy.ID, order.GroupBuyID)
	assert.Equal(t, "Onions", order.ProductName)
	assert.True(t, order.PricePerKg.Equal(decimal.NewFromInt(20)))
	assert.True(t, order.Total.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, enums.OrderStatusConfirmed, order.Status)

	var notification models.Notification
	require.NoError(t, h.db.Where("user_id = ?", userID).First(&notification).Error)
	require.NotNil(t, notification.Href)
	assert.Equal(t, fmt.Sprintf("/orders/%s/tracking", result.OrderID), *notification.Href)
	assert.Nil(t, notification.ReadAt)

	var event models.OutboxEvent
	require.NoError(t, h.db.Where("event_type = ?", enums.EventGroupBuyJoined).First(&event).Error)
	assert.Equal(t, groupBuy.ID, event.AggregateID)
	assert.Nil(t, event.PublishedAt)

	assert.Equal(t, 1, h.views.joins)
	assert.Equal(t, []string{"success"}, h.metrics.outcomes)
}

func TestJoinRequiresAuthentication(t *testing.T) {
	h := newServiceHarness(t, nil)
	groupBuy := createGroupBuy(t, h.db, enums.GroupBuyStatusOpen, nil)

	_, err := h.svc.Join(context.Background(), JoinInput{
		GroupBuyID: groupBuy.ID,
		Quantity:   decimal.NewFromInt(5),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())

	// Nothing was written and the counters never moved.
	assert.Equal(t, int64(0), h.countRows(t, &models.Order{}))
	updated := reloadGroupBuy(t, h.db, groupBuy.ID)
	assert.True(t, updated.CurrentQuantity.Equal(groupBuy.CurrentQuantity))
	assert.Equal(t, groupBuy.VendorCount, updated.VendorCount)
}

func TestJoinRejectsNonPositiveQuantity(t *testing.T) {
	h := newServiceHarness(t, nil)
	groupBuy := createGroupBuy(t, h.db, enums.GroupBuyStatusOpen, nil)

	for _, quantity := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-3)} {
		_, err := h.svc.Join(context.Background(), JoinInput{
			GroupBuyID: groupBuy.ID,
			UserID:     uuid.New(),
			Quantity:   quantity,
		})
		require.Error(t, err)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	}
	assert.Equal(t, int64(0), h.countRows(t, &models.Order{}))
}

func TestJoinUnknownGroupBuy(t *testing.T) {
	h := newServiceHarness(t, nil)

	_, err := h.svc.Join(context.Background(), JoinInput{
		GroupBuyID: uuid.New(),
		UserID:     uuid.New(),
		Quantity:   decimal.NewFromInt(5),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestJoinRejectsClosedDeal(t *testing.T) {
	h := newServiceHarness(t, nil)
	groupBuy := createGroupBuy(t, h.db, enums.GroupBuyStatusClosed, nil)

	_, err := h.svc.Join(context.Background(), JoinInput{
		GroupBuyID: groupBuy.ID,
		UserID:     uuid.New(),
		Quantity:   decimal.NewFromInt(5),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Equal(t, int64(0), h.countRows(t, &models.Order{}))
	assert.Equal(t, []string{"conflict"}, h.metrics.outcomes)
}

func TestJoinRollsBackAllWritesOnFailure(t *testing.T) {
	h := newServiceHarness(t, failingOutbox{})
	groupBuy := createGroupBuy(t, h.db, enums.GroupBuyStatusOpen, nil)

	_, err := h.svc.Join(context.Background(), JoinInput{
		GroupBuyID: groupBuy.ID,
		UserID:     uuid.New(),
		Quantity:   decimal.NewFromInt(5),
	})
	require.Error(t, err)

	// The counter increment, order, and notification all rolled back together.
	updated := reloadGroupBuy(t, h.db, groupBuy.ID)
	assert.True(t, updated.CurrentQuantity.Equal(decimal.NewFromInt(30)), "got %s", updated.CurrentQuantity)
	assert.Equal(t, 3, updated.VendorCount)
	assert.Equal(t, int64(0), h.countRows(t, &models.Order{}))
	assert.Equal(t, int64(0), h.countRows(t, &models.Notification{}))
	assert.Equal(t, 0, h.views.joins)
}

func TestJoinSequentialCommitmentsAccumulate(t *testing.T) {
	h := newServiceHarness(t, nil)
	groupBuy := createGroupBuy(t, h.db, enums.GroupBuyStatusOpen, func(g *models.GroupBuy) {
		g.CurrentQuantity = decimal.Zero
		g.VendorCount = 0
	})

	const joins = 20
	for i := 0; i < joins; i++ {
		_, err := h.svc.Join(context.Background(), JoinInput{
			GroupBuyID: groupBuy.ID,
			UserID:     uuid.New(),
			Quantity:   decimal.NewFromInt(3),
		})
		require.NoError(t, err)
	}

	updated := reloadGroupBuy(t, h.db, groupBuy.ID)
	assert.True(t, updated.CurrentQuantity.Equal(decimal.NewFromInt(60)), "got %s", updated.CurrentQuantity)
	assert.Equal(t, joins, updated.VendorCount)
	assert.Equal(t, int64(joins), h.countRows(t, &models.Order{}))
}

func TestJoinConcurrentVendorsNoLostUpdates(t *testing.T) {
	h := newServiceHarness(t, nil)
	groupBuy := createGroupBuy(t, h.db, enums.GroupBuyStatusOpen, func(g *models.GroupBuy) {
		g.CurrentQuantity = decimal.Zero
		g.VendorCount = 0
	})

	const vendors = 20
	var wg sync.WaitGroup
	errs := make([]error, vendors)
	for i := 0; i < vendors; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.Join(context.Background(), JoinInput{
				GroupBuyID: groupBuy.ID,
				UserID:     uuid.New(),
				Quantity:   decimal.NewFromInt(10),
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "join %d", i)
	}

	updated := reloadGroupBuy(t, h.db, groupBuy.ID)
	assert.True(t, updated.CurrentQuantity.Equal(decimal.NewFromInt(200)), "got %s", updated.CurrentQuantity)
	assert.Equal(t, vendors, updated.VendorCount)
	assert.Equal(t, int64(vendors), h.countRows(t, &models.Order{}))
}

func TestJoinEventCarriesCommittedCounters(t *testing.T) {
	db := setupGroupBuyTestDB(t)
	notifSvc, err := notifications.NewService(notifications.NewRepository(db))
	require.NoError(t, err)

	publisher := &recordingOutbox{}
	repo := &racingJoinRepo{Repository: NewRepository(db), db: db, extra: decimal.NewFromInt(7)}
	svc, err := NewService(gormTxRunner{db: db}, repo, orders.NewRepository(db), notifSvc, publisher, nil, nil, nil)
	require.NoError(t, err)

	groupBuy := createGroupBuy(t, db, enums.GroupBuyStatusOpen, nil)
	_, err = svc.Join(context.Background(), JoinInput{
		GroupBuyID: groupBuy.ID,
		UserID:     uuid.New(),
		Quantity:   decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	// 30 at creation, plus the racing vendor's 7, plus this join's 5. The
	// event must report what the database holds, not the stale snapshot.
	require.Len(t, publisher.events, 1)
	payload, ok := publisher.events[0].Data.(payloads.GroupBuyJoinedEvent)
	require.True(t, ok)
	assert.True(t, payload.CurrentQuantity.Equal(decimal.NewFromInt(42)), "got %s", payload.CurrentQuantity)
	assert.Equal(t, 5, payload.VendorCount)
}

func TestAcceptFirstSupplierWins(t *testing.T) {
	h := newServiceHarness(t, nil)
	groupBuy := createGroupBuy(t, h.db, enums.GroupBuyStatusOpen, nil)

	first := uuid.New()
	dto, err := h.svc.Accept(context.Background(), AcceptInput{GroupBuyID: groupBuy.ID, SupplierID: first})
	require.NoError(t, err)
	require.NotNil(t, dto.SupplierID)
	assert.Equal(t, first, *dto.SupplierID)
	assert.Equal(t, enums.GroupBuyStatusProcessing, dto.Status)

	_, err = h.svc.Accept(context.Background(), AcceptInput{GroupBuyID: groupBuy.ID, SupplierID: uuid.New()})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	assert.Equal(t, 1, h.views.accepts)
	assert.Equal(t, []string{"processing"}, h.metrics.transitions)
}

func TestUpdateStatusEnforcesTransitionTable(t *testing.T) {
	h := newServiceHarness(t, nil)
	groupBuy := createGroupBuy(t, h.db, enums.GroupBuyStatusProcessing, nil)
	actorID := uuid.New()

	dto, err := h.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		GroupBuyID: groupBuy.ID,
		Status:     enums.GroupBuyStatusFulfilled,
		ActorID:    actorID,
		ActorRole:  enums.UserRoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.GroupBuyStatusFulfilled, dto.Status)

	// Fulfilled is terminal.
	_, err = h.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		GroupBuyID: groupBuy.ID,
		Status:     enums.GroupBuyStatusOpen,
		ActorID:    actorID,
		ActorRole:  enums.UserRoleAdmin,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	var event models.OutboxEvent
	require.NoError(t, h.db.Where("event_type = ?", enums.EventGroupBuyStatusChanged).First(&event).Error)
	assert.Equal(t, groupBuy.ID, event.AggregateID)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	h := newServiceHarness(t, nil)
	groupBuy := createGroupBuy(t, h.db, enums.GroupBuyStatusOpen, nil)

	_, err := h.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		GroupBuyID: groupBuy.ID,
		Status:     enums.GroupBuyStatus("archived"),
		ActorID:    uuid.New(),
		ActorRole:  enums.UserRoleAdmin,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestListOpenReturnsDTOs(t *testing.T) {
	h := newServiceHarness(t, nil)
	groupBuy := createGroupBuy(t, h.db, enums.GroupBuyStatusOpen, nil)

	result, err := h.svc.ListOpen(context.Background(), nil, 10, "")
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, groupBuy.ID, result.Items[0].ID)
	assert.Equal(t, "Azadpur Mandi", result.Items[0].HubName)
	assert.Empty(t, result.Cursor)
}
