package realtime

import (
	"context"

	"github.com/dalemusser/solarhub/internal/app/store/docstore"
	"github.com/dalemusser/solarhub/internal/app/system/timeouts"
	"github.com/dalemusser/solarhub/internal/domain/models"
	"go.uber.org/zap"
)

// Collections the subsystem reads and writes.
const (
	CollectionUsers         = "users"
	CollectionProjects      = "projects"
	CollectionTransactions  = "transactions"
	CollectionNotifications = "notifications"
)

// CategoryOwnedProjects is the seller's scope watch. It never notifies; a
// change to the seller's project set re-runs activation.
const CategoryOwnedProjects = "owned-projects"

// Watch describes one live query opened for an identity.
type Watch struct {
	Category   string
	Collection string
	Filters    []docstore.Filter
	// ActorField names the document field holding the user who caused the
	// document; a match with the observer suppresses the notification.
	ActorField string
	// Scope marks a watch whose changes alter the plan rather than notify.
	Scope bool
}

// plan is the set of watches for one role.
type plan interface {
	watches(ctx context.Context, store docstore.Store, uid string, log *zap.Logger) ([]Watch, error)
}

type (
	buyerPlan  struct{}
	sellerPlan struct{}
	idlePlan   struct{}
)

func planFor(role Role) plan {
	switch role {
	case RoleBuyer:
		return buyerPlan{}
	case RoleSeller:
		return sellerPlan{}
	case RoleAdmin, RoleUnknown:
		return idlePlan{}
	default:
		return idlePlan{}
	}
}

func (buyerPlan) watches(_ context.Context, _ docstore.Store, uid string, _ *zap.Logger) ([]Watch, error) {
	return []Watch{
		{
			Category:   models.CategoryNewListing,
			Collection: CollectionProjects,
			ActorField: "owner_id",
		},
		{
			Category:   models.CategoryPurchase,
			Collection: CollectionTransactions,
			Filters:    []docstore.Filter{docstore.Eq("buyer_id", uid)},
		},
	}, nil
}

// watches reads the seller's project ids once; the set is fixed for the
// activation. A seller with no projects only gets the scope watch.
func (sellerPlan) watches(ctx context.Context, store docstore.Store, uid string, log *zap.Logger) ([]Watch, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Read(), log, "seller project scope")
	defer cancel()

	owned, err := store.GetOnce(ctx, CollectionProjects, docstore.Eq("owner_id", uid))
	if err != nil {
		return nil, &TransientStoreError{Op: "load seller projects", Err: err}
	}

	out := []Watch{{
		Category:   CategoryOwnedProjects,
		Collection: CollectionProjects,
		Filters:    []docstore.Filter{docstore.Eq("owner_id", uid)},
		Scope:      true,
	}}
	if len(owned) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(owned))
	for _, p := range owned {
		ids = append(ids, p.ID)
	}
	return append(out, Watch{
		Category:   models.CategorySale,
		Collection: CollectionTransactions,
		Filters:    []docstore.Filter{docstore.In("project_id", ids)},
		ActorField: "buyer_id",
	}), nil
}

func (idlePlan) watches(context.Context, docstore.Store, string, *zap.Logger) ([]Watch, error) {
	return nil, nil
}
