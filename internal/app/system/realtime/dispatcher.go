package realtime

import (
	"context"
	"time"

	"github.com/dalemusser/solarhub/internal/app/store/docstore"
	"github.com/dalemusser/solarhub/internal/app/system/alerts"
	"github.com/dalemusser/solarhub/internal/app/system/metrics"
	"github.com/dalemusser/solarhub/internal/app/system/timeouts"
	"github.com/dalemusser/solarhub/internal/domain/models"
	"go.uber.org/zap"
)

// Event is one qualifying change: a newly added document for a recipient.
type Event struct {
	Category  string
	Recipient string
	Doc       docstore.Record
}

// Dispatcher shows an alert for each event and writes its notification
// record. Neither step can fail the caller.
type Dispatcher struct {
	store docstore.Store
	sink  alerts.Sink
	log   *zap.Logger
	now   func() time.Time
}

// NewDispatcher creates a dispatcher. sink may be nil.
func NewDispatcher(store docstore.Store, sink alerts.Sink, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{store: store, sink: sink, log: logger, now: time.Now}
}

// Dispatch handles ev. The alert is skipped when live reports the owning
// subscription is gone; the record write is never skipped once started and
// is not canceled with ctx.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event, live func() bool) {
	msg, ok := Format(ev.Category, ev.Doc)
	if !ok {
		d.log.Warn("no template for category", zap.String("category", ev.Category))
		return
	}
	now := d.now().UTC()

	if live == nil || live() {
		d.showAlert(alerts.Alert{
			Recipient:   ev.Recipient,
			Category:    ev.Category,
			Title:       msg.Title,
			Description: msg.Description,
			RelatedID:   ev.Doc.ID,
			At:          now,
		})
	}

	wctx, cancel := timeouts.WithTimeout(context.WithoutCancel(ctx), timeouts.Write(), d.log, "notification insert")
	defer cancel()

	rec := models.Notification{
		RecipientID: ev.Recipient,
		Category:    ev.Category,
		Title:       msg.Title,
		Description: msg.Description,
		RelatedID:   ev.Doc.ID,
		CreatedAt:   now,
	}
	id, err := d.store.AddRecord(wctx, CollectionNotifications, rec)
	if err != nil {
		metrics.RecordWriteFailure(ev.Category)
		d.log.Error("notification write failed",
			zap.String("category", ev.Category),
			zap.String("recipient", ev.Recipient),
			zap.String("related_id", ev.Doc.ID),
			zap.Error(err))
		return
	}
	metrics.RecordNotification(ev.Category)
	d.log.Debug("notification written",
		zap.String("category", ev.Category),
		zap.String("recipient", ev.Recipient),
		zap.String("notification_id", id))
}

// showAlert is best-effort; a panicking sink is contained here.
func (d *Dispatcher) showAlert(a alerts.Alert) {
	if d.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.log.Warn("alert sink panicked", zap.Any("panic", r))
		}
	}()
	d.sink.Show(a)
}
