package views

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/mandisetu/mandisetu-backend/pkg/logger"
)

// viewStore is the slice of the redis client the invalidator needs.
type viewStore interface {
	Del(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
	ViewKey(parts ...string) string
}

// Invalidator evicts cached view fragments after writes. Eviction is best
// effort; the caller logs failures but never rolls back a committed write
// because a cache key survived.
type Invalidator struct {
	store viewStore
	logg  *logger.Logger
}

// NewInvalidator wires the view cache invalidator.
func NewInvalidator(store viewStore, logg *logger.Logger) *Invalidator {
	return &Invalidator{store: store, logg: logg}
}

// AfterJoin evicts the deal listing and the vendor's order history. Deal views
// cache per page under cursor-suffixed keys, so they are evicted by pattern.
func (i *Invalidator) AfterJoin(ctx context.Context, groupBuyID, userID uuid.UUID) error {
	if i == nil || i.store == nil {
		return nil
	}
	err := multierr.Combine(
		i.store.DeletePattern(ctx, i.dealsPattern()),
		i.store.Del(ctx,
			i.store.ViewKey("orders", userID.String()),
			i.store.ViewKey("notifications", userID.String()),
		),
	)
	i.logFailure(ctx, err)
	return err
}

// AfterAccept evicts the deal listing and the supplier's dashboard view.
func (i *Invalidator) AfterAccept(ctx context.Context, groupBuyID, supplierID uuid.UUID) error {
	if i == nil || i.store == nil {
		return nil
	}
	err := multierr.Combine(
		i.store.DeletePattern(ctx, i.dealsPattern()),
		i.store.Del(ctx, i.store.ViewKey("supplier", supplierID.String())),
	)
	i.logFailure(ctx, err)
	return err
}

// AfterStatusChange evicts the deal views plus every participant's order and
// notification views.
func (i *Invalidator) AfterStatusChange(ctx context.Context, groupBuyID uuid.UUID, userIDs []uuid.UUID) error {
	if i == nil || i.store == nil {
		return nil
	}
	err := i.store.DeletePattern(ctx, i.dealsPattern())
	for _, userID := range userIDs {
		err = multierr.Append(err, i.store.Del(ctx,
			i.store.ViewKey("orders", userID.String()),
			i.store.ViewKey("notifications", userID.String()),
		))
	}
	i.logFailure(ctx, err)
	return err
}

func (i *Invalidator) dealsPattern() string {
	return i.store.ViewKey("deals") + "*"
}

func (i *Invalidator) logFailure(ctx context.Context, err error) {
	if err == nil || i.logg == nil {
		return
	}
	i.logg.Error(ctx, "view cache invalidation failed", err)
}
