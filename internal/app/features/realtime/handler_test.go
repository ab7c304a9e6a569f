package realtime_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/solarhub/internal/app/features/realtime"
	"github.com/dalemusser/solarhub/internal/app/store/docstore"
	"github.com/dalemusser/solarhub/internal/app/system/alerts"
	"github.com/dalemusser/solarhub/internal/app/system/ratelimit"
	"github.com/dalemusser/solarhub/internal/testutil"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// withUser stands in for the session cookie middleware.
func withUser(user testutil.TestUser, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, testutil.WithUser(r, user))
	})
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

type setup struct {
	mem    *docstore.Memory
	fx     *testutil.Fixtures
	srv    *httptest.Server
	buyer  testutil.TestUser
	seller string
}

func newSetup(t *testing.T, cfg realtime.Config, limiter *ratelimit.Limiter) *setup {
	t.Helper()
	mem := docstore.NewMemory()
	fx := testutil.NewFixtures(t, mem)
	ctx := context.Background()

	b := fx.CreateBuyer(ctx, "Bea Buyer")
	s := fx.CreateSeller(ctx, "Sam Seller")
	buyer := testutil.BuyerUser()
	buyer.ID = b.ID.Hex()

	cfg.Now = func() time.Time { return t0 }
	if cfg.Fallback == 0 {
		cfg.Fallback = time.Hour
	}
	h := realtime.NewHandler(mem, cfg, zap.NewNop())
	srv := httptest.NewServer(withUser(buyer, realtime.Routes(h, limiter)))
	t.Cleanup(srv.Close)

	return &setup{mem: mem, fx: fx, srv: srv, buyer: buyer, seller: s.ID.Hex()}
}

func (s *setup) waitLive(t *testing.T, collection string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.mem.Live(collection) == n },
		2*time.Second, 5*time.Millisecond)
}

func TestServe_PushesAlertForNewListing(t *testing.T) {
	s := newSetup(t, realtime.Config{}, nil)
	ws := dial(t, s.srv)
	s.waitLive(t, "projects", 1)

	s.fx.CreateProject(context.Background(), s.seller, "Sunny Acres", t0.Add(time.Second))

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg alerts.Message
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, "alert", msg.Type)
	assert.Equal(t, "new-listing", msg.Alert.Category)
	assert.Equal(t, s.buyer.ID, msg.Alert.Recipient)
	assert.Contains(t, msg.Alert.Description, "Sunny Acres")

	require.Len(t, s.mem.Records("notifications"), 1)
}

func TestServe_SignoutMessageTearsDown(t *testing.T) {
	s := newSetup(t, realtime.Config{}, nil)
	ws := dial(t, s.srv)
	s.waitLive(t, "projects", 1)

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "signout"}))
	s.waitLive(t, "projects", 0)

	s.fx.CreateProject(context.Background(), s.seller, "Too Late", t0.Add(time.Second))
	assert.Empty(t, s.mem.Records("notifications"))
}

func TestServe_RefreshReopens(t *testing.T) {
	s := newSetup(t, realtime.Config{}, nil)
	ws := dial(t, s.srv)
	s.waitLive(t, "projects", 1)
	opened := s.mem.Opened()

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "refresh"}))
	require.Eventually(t, func() bool { return s.mem.Opened() == opened+2 }, 2*time.Second, 5*time.Millisecond)
	s.waitLive(t, "projects", 1)
}

func TestServe_DisconnectClosesSession(t *testing.T) {
	s := newSetup(t, realtime.Config{}, nil)
	ws := dial(t, s.srv)
	s.waitLive(t, "transactions", 1)

	require.NoError(t, ws.Close())
	s.waitLive(t, "transactions", 0)
}

func TestServe_PublishesToNATS(t *testing.T) {
	pub := make(chan string, 4)
	s := newSetup(t, realtime.Config{
		Publisher:    publisherFunc(func(subject string, _ []byte) error { pub <- subject; return nil }),
		AlertSubject: "solarhub.alerts",
	}, nil)
	dial(t, s.srv)
	s.waitLive(t, "projects", 1)

	s.fx.CreateProject(context.Background(), s.seller, "Ridge", t0.Add(time.Second))

	select {
	case subject := <-pub:
		assert.Equal(t, "solarhub.alerts."+s.buyer.ID, subject)
	case <-time.After(2 * time.Second):
		t.Fatal("alert was not published")
	}
}

func TestServe_ConnectRateLimited(t *testing.T) {
	limiter := ratelimit.New(1, time.Minute)
	defer limiter.Stop()
	s := newSetup(t, realtime.Config{}, limiter)
	dial(t, s.srv)

	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

type publisherFunc func(subject string, data []byte) error

func (f publisherFunc) Publish(subject string, data []byte) error { return f(subject, data) }
