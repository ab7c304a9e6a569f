package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/solarhub/internal/app/system/metrics"
)

func TestHandler_ExposesRealtimeSeries(t *testing.T) {
	metrics.RecordNotification("sale")
	metrics.RecordWriteFailure("sale")
	metrics.RecordBaselineSuppressed("new-listing", 3)
	metrics.SubscriptionOpened("purchase")
	metrics.RecordRoleResolution("buyer")
	metrics.RecordAlert("sent")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`solarhub_realtime_notifications_total{category="sale"}`,
		`solarhub_realtime_notification_write_failures_total{category="sale"}`,
		`solarhub_realtime_baseline_changes_suppressed_total{category="new-listing"}`,
		`solarhub_realtime_active_subscriptions{category="purchase"}`,
		`solarhub_realtime_role_resolutions_total{result="buyer"}`,
		`solarhub_alerts_alerts_total{outcome="sent"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
