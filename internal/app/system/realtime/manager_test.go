package realtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/solarhub/internal/app/store/docstore"
	"github.com/dalemusser/solarhub/internal/app/system/realtime"
	"github.com/dalemusser/solarhub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManager_BuyerBaselineThenNewListing(t *testing.T) {
	e := newEnv(t)
	seller := e.fx.CreateSeller(e.ctx, "Sam Seller")
	buyer := e.fx.CreateBuyer(e.ctx, "Bea Buyer")

	e.fx.CreateProject(e.ctx, seller.ID.Hex(), "Old Farm", t0.Add(-24*time.Hour))
	for _, name := range []string{"Ridge", "Mesa", "Valley"} {
		e.fx.CreateProject(e.ctx, seller.ID.Hex(), name, t0)
	}

	m := e.manager(time.Hour)
	require.NoError(t, m.Activate(e.ctx, realtime.Identity{ID: buyer.ID.Hex(), Role: realtime.RoleBuyer}))
	assert.Empty(t, e.notifications(buyer.ID.Hex()), "baseline must not notify")
	assert.Empty(t, e.sink.Alerts())

	p := e.fx.CreateProject(e.ctx, seller.ID.Hex(), "Sunny Acres", t0.Add(5*time.Second))

	got := e.notifications(buyer.ID.Hex())
	require.Len(t, got, 1)
	assert.Equal(t, models.CategoryNewListing, got[0].String("category"))
	assert.Equal(t, p.ID.Hex(), got[0].String("related_id"))
	assert.Contains(t, got[0].String("description"), "Sunny Acres")

	shown := e.sink.Alerts()
	require.Len(t, shown, 1)
	assert.Equal(t, "New project listed", shown[0].Title)
	assert.Equal(t, buyer.ID.Hex(), shown[0].Recipient)
}

func TestManager_OneNotificationPerAddedTransaction(t *testing.T) {
	e := newEnv(t)
	seller := e.fx.CreateSeller(e.ctx, "Sam Seller")
	buyer := e.fx.CreateBuyer(e.ctx, "Bea Buyer")
	p := e.fx.CreateProject(e.ctx, seller.ID.Hex(), "Ridge", t0.Add(-time.Hour))

	m := e.manager(time.Hour)
	require.NoError(t, m.Activate(e.ctx, realtime.Identity{ID: buyer.ID.Hex(), Role: realtime.RoleBuyer}))

	tx := e.fx.CreateTransaction(e.ctx, p, buyer.ID.Hex(), 4, t0.Add(time.Second))
	e.fx.CreateTransaction(e.ctx, p, buyer.ID.Hex(), 1, t0.Add(2*time.Second))
	require.NoError(t, e.mem.Update(e.ctx, realtime.CollectionTransactions, tx.ID.Hex(), map[string]any{"tokens": int64(5)}))

	got := e.notifications(buyer.ID.Hex())
	require.Len(t, got, 2)
	for _, n := range got {
		assert.Equal(t, models.CategoryPurchase, n.String("category"))
	}
	assert.Equal(t, "You bought 4 tokens of Ridge for $50.00.", got[0].String("description"))
}

func TestManager_SellerSelfPurchaseSuppressed(t *testing.T) {
	e := newEnv(t)
	seller := e.fx.CreateSeller(e.ctx, "Sam Seller")
	buyer := e.fx.CreateBuyer(e.ctx, "Bea Buyer")
	p1 := e.fx.CreateProject(e.ctx, seller.ID.Hex(), "p1", t0.Add(-time.Hour))
	e.fx.CreateProject(e.ctx, seller.ID.Hex(), "p2", t0.Add(-time.Hour))

	m := e.manager(time.Hour)
	require.NoError(t, m.Activate(e.ctx, realtime.Identity{ID: seller.ID.Hex(), Role: realtime.RoleSeller}))

	e.fx.CreateTransaction(e.ctx, p1, seller.ID.Hex(), 3, t0.Add(time.Second))
	assert.Empty(t, e.notifications(seller.ID.Hex()))

	e.fx.CreateTransaction(e.ctx, p1, buyer.ID.Hex(), 3, t0.Add(2*time.Second))
	got := e.notifications(seller.ID.Hex())
	require.Len(t, got, 1)
	assert.Equal(t, models.CategorySale, got[0].String("category"))
	assert.Equal(t, "3 tokens of p1 sold for $37.50.", got[0].String("description"))
}

func TestManager_SellerOnlySeesOwnProjects(t *testing.T) {
	e := newEnv(t)
	seller := e.fx.CreateSeller(e.ctx, "Sam Seller")
	other := e.fx.CreateSeller(e.ctx, "Olive Other")
	buyer := e.fx.CreateBuyer(e.ctx, "Bea Buyer")
	e.fx.CreateProject(e.ctx, seller.ID.Hex(), "Mine", t0.Add(-time.Hour))
	theirs := e.fx.CreateProject(e.ctx, other.ID.Hex(), "Theirs", t0.Add(-time.Hour))

	m := e.manager(time.Hour)
	require.NoError(t, m.Activate(e.ctx, realtime.Identity{ID: seller.ID.Hex(), Role: realtime.RoleSeller}))

	e.fx.CreateTransaction(e.ctx, theirs, buyer.ID.Hex(), 2, t0.Add(time.Second))
	assert.Empty(t, e.notifications(seller.ID.Hex()))
}

func TestManager_RoleScoping(t *testing.T) {
	e := newEnv(t)
	seller := e.fx.CreateSeller(e.ctx, "Sam Seller")
	buyer := e.fx.CreateBuyer(e.ctx, "Bea Buyer")
	admin := e.fx.CreateUser(e.ctx, "Ada Admin", "admin")
	p := e.fx.CreateProject(e.ctx, seller.ID.Hex(), "Ridge", t0.Add(-time.Hour))

	m := e.manager(time.Hour)

	require.NoError(t, m.Activate(e.ctx, realtime.Identity{ID: seller.ID.Hex(), Role: realtime.RoleSeller}))
	assert.Equal(t, []string{realtime.CategoryOwnedProjects, models.CategorySale}, categories(m))
	assert.Nil(t, m.Handle(models.CategoryNewListing))
	other := e.fx.CreateSeller(e.ctx, "Olive Other")
	e.fx.CreateProject(e.ctx, other.ID.Hex(), "Elsewhere", t0.Add(time.Second))
	assert.Empty(t, e.notifications(seller.ID.Hex()), "seller must not get new-listing")

	require.NoError(t, m.Activate(e.ctx, realtime.Identity{ID: buyer.ID.Hex(), Role: realtime.RoleBuyer}))
	assert.Equal(t, []string{models.CategoryNewListing, models.CategoryPurchase}, categories(m))
	e.fx.CreateTransaction(e.ctx, p, buyer.ID.Hex(), 1, t0.Add(2*time.Second))
	for _, n := range e.notifications(buyer.ID.Hex()) {
		assert.NotEqual(t, models.CategorySale, n.String("category"))
	}

	require.NoError(t, m.Activate(e.ctx, realtime.Identity{ID: admin.ID.Hex(), Role: realtime.RoleAdmin}))
	assert.Empty(t, categories(m))

	require.NoError(t, m.Activate(e.ctx, realtime.Identity{ID: "nobody", Role: realtime.RoleUnknown}))
	assert.Empty(t, categories(m))
}

func TestManager_SellerWithoutProjectsOnlyWatchesScope(t *testing.T) {
	e := newEnv(t)
	seller := e.fx.CreateSeller(e.ctx, "Sam Seller")

	m := e.manager(time.Hour)
	require.NoError(t, m.Activate(e.ctx, realtime.Identity{ID: seller.ID.Hex(), Role: realtime.RoleSeller}))
	assert.Equal(t, []string{realtime.CategoryOwnedProjects}, categories(m))
}

func TestManager_TeardownStopsBufferedEvents(t *testing.T) {
	e := newEnv(t)
	seller := e.fx.CreateSeller(e.ctx, "Sam Seller")
	buyer := e.fx.CreateBuyer(e.ctx, "Bea Buyer")

	m := e.manager(time.Hour)
	require.NoError(t, m.Activate(e.ctx, realtime.Identity{ID: buyer.ID.Hex(), Role: realtime.RoleBuyer}))
	handles := m.Active()
	require.Len(t, handles, 2)

	m.Teardown()
	m.Teardown()

	assert.Empty(t, m.Active())
	assert.Equal(t, 0, e.mem.Live(realtime.CollectionProjects))
	assert.Equal(t, 0, e.mem.Live(realtime.CollectionTransactions))
	for _, h := range handles {
		assert.False(t, h.Live())
	}

	e.mem.Replay(realtime.CollectionProjects, docstore.Snapshot{Changes: []docstore.Change{{
		Type: docstore.Added,
		Doc:  docstore.Record{ID: "late", Data: map[string]any{"name": "Late", "owner_id": seller.ID.Hex()}},
	}}})
	assert.Empty(t, e.notifications(buyer.ID.Hex()))
	assert.Empty(t, e.sink.Alerts())
}

// gatedStore holds notification writes until release is closed.
type gatedStore struct {
	*docstore.Memory
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) AddRecord(ctx context.Context, collection string, doc any) (string, error) {
	if collection == realtime.CollectionNotifications {
		g.once.Do(func() { close(g.started) })
		<-g.release
	}
	return g.Memory.AddRecord(ctx, collection, doc)
}

func TestManager_InFlightWriteCompletesAfterTeardown(t *testing.T) {
	e := newEnv(t)
	gate := &gatedStore{Memory: e.mem, started: make(chan struct{}), release: make(chan struct{})}
	e.store = gate
	seller := e.fx.CreateSeller(e.ctx, "Sam Seller")
	buyer := e.fx.CreateBuyer(e.ctx, "Bea Buyer")

	m := e.manager(time.Hour)
	require.NoError(t, m.Activate(e.ctx, realtime.Identity{ID: buyer.ID.Hex(), Role: realtime.RoleBuyer}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.fx.CreateProject(context.Background(), seller.ID.Hex(), "Racing", t0.Add(time.Second))
	}()

	select {
	case <-gate.started:
	case <-time.After(2 * time.Second):
		t.Fatal("notification write never started")
	}
	alertsBefore := len(e.sink.Alerts())

	m.Teardown()
	close(gate.release)
	<-done

	assert.Len(t, e.notifications(buyer.ID.Hex()), 1, "in-flight write completes")

	e.mem.Replay(realtime.CollectionProjects, docstore.Snapshot{Changes: []docstore.Change{{
		Type: docstore.Added,
		Doc:  docstore.Record{ID: "buffered", Data: map[string]any{"owner_id": seller.ID.Hex()}},
	}}})
	assert.Len(t, e.sink.Alerts(), alertsBefore, "no alert after teardown")
	assert.Len(t, e.notifications(buyer.ID.Hex()), 1)
}

func TestManager_ScopeReadFailureActivatesNothing(t *testing.T) {
	e := newEnv(t)
	seller := e.fx.CreateSeller(e.ctx, "Sam Seller")
	e.mem.FailReads(realtime.CollectionProjects, errors.New("connection reset"))

	m := e.manager(time.Hour)
	err := m.Activate(e.ctx, realtime.Identity{ID: seller.ID.Hex(), Role: realtime.RoleSeller})

	var tse *realtime.TransientStoreError
	require.ErrorAs(t, err, &tse)
	assert.Equal(t, "load seller projects", tse.Op)
	assert.Empty(t, m.Active())
	assert.Zero(t, e.mem.Opened())
}

func TestManager_PartialOpenFailureRollsBack(t *testing.T) {
	e := newEnv(t)
	buyer := e.fx.CreateBuyer(e.ctx, "Bea Buyer")
	e.mem.FailReads(realtime.CollectionTransactions, errors.New("not primary"))

	m := e.manager(time.Hour)
	err := m.Activate(e.ctx, realtime.Identity{ID: buyer.ID.Hex(), Role: realtime.RoleBuyer})

	require.True(t, realtime.IsTransient(err))
	assert.Empty(t, m.Active())
	assert.Equal(t, 0, e.mem.Live(realtime.CollectionProjects))
}

func TestManager_ReactivationDoesNotDuplicate(t *testing.T) {
	e := newEnv(t)
	seller := e.fx.CreateSeller(e.ctx, "Sam Seller")
	buyer := e.fx.CreateBuyer(e.ctx, "Bea Buyer")

	m := e.manager(time.Hour)
	id := realtime.Identity{ID: buyer.ID.Hex(), Role: realtime.RoleBuyer}
	require.NoError(t, m.Activate(e.ctx, id))
	require.NoError(t, m.Activate(e.ctx, id))
	assert.Equal(t, 1, e.mem.Live(realtime.CollectionProjects))

	e.fx.CreateProject(e.ctx, seller.ID.Hex(), "Once", t0.Add(time.Second))
	assert.Len(t, e.notifications(buyer.ID.Hex()), 1)
}

func TestManager_CutoffTruncatedToMillisecond(t *testing.T) {
	e := newEnv(t)
	buyer := e.fx.CreateBuyer(e.ctx, "Bea Buyer")

	m := realtime.NewManager(e.store, realtime.NewDispatcher(e.store, e.sink, zap.NewNop()), zap.NewNop(), realtime.ManagerOptions{
		Fallback: time.Hour,
		Now:      func() time.Time { return t0.Add(1500 * time.Microsecond) },
	})
	t.Cleanup(m.Teardown)

	require.NoError(t, m.Activate(e.ctx, realtime.Identity{ID: buyer.ID.Hex(), Role: realtime.RoleBuyer}))
	h := m.Handle(models.CategoryNewListing)
	require.NotNil(t, h)
	assert.Equal(t, t0.Add(time.Millisecond), h.Cutoff)
}

func TestManager_FallbackWhenStoreSilentOnEmptyBaseline(t *testing.T) {
	e := newEnv(t)
	e.mem.SkipEmptyBaseline = true
	seller := e.fx.CreateSeller(e.ctx, "Sam Seller")
	buyer := e.fx.CreateBuyer(e.ctx, "Bea Buyer")

	m := e.manager(200 * time.Millisecond)
	require.NoError(t, m.Activate(e.ctx, realtime.Identity{ID: buyer.ID.Hex(), Role: realtime.RoleBuyer}))

	h := m.Handle(models.CategoryNewListing)
	require.NotNil(t, h)
	assert.False(t, h.State.Consumed())
	require.Eventually(t, h.State.Consumed, 2*time.Second, 5*time.Millisecond)

	e.fx.CreateProject(e.ctx, seller.ID.Hex(), "First", t0.Add(time.Second))
	assert.Len(t, e.notifications(buyer.ID.Hex()), 1)
}

func TestManager_WriteFailureIsIsolated(t *testing.T) {
	e := newEnv(t)
	seller := e.fx.CreateSeller(e.ctx, "Sam Seller")
	buyer := e.fx.CreateBuyer(e.ctx, "Bea Buyer")

	m := e.manager(time.Hour)
	require.NoError(t, m.Activate(e.ctx, realtime.Identity{ID: buyer.ID.Hex(), Role: realtime.RoleBuyer}))

	e.mem.FailWrites(realtime.CollectionNotifications, errors.New("disk full"))
	e.fx.CreateProject(e.ctx, seller.ID.Hex(), "Lost", t0.Add(time.Second))
	assert.Empty(t, e.notifications(buyer.ID.Hex()))
	assert.Len(t, e.sink.Alerts(), 1, "alert is independent of the write")

	e.mem.FailWrites(realtime.CollectionNotifications, nil)
	e.fx.CreateProject(e.ctx, seller.ID.Hex(), "Kept", t0.Add(2*time.Second))
	assert.Len(t, e.notifications(buyer.ID.Hex()), 1)
	assert.Len(t, e.sink.Alerts(), 2)
	assert.NotEmpty(t, m.Active())
}
