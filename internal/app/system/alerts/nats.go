package alerts

import (
	"encoding/json"

	"github.com/dalemusser/solarhub/internal/app/system/metrics"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher is the part of a NATS connection the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// NATS republishes alerts on "<subject>.<recipient>" so other replicas and
// out-of-process clients (mobile push bridges) can pick them up.
type NATS struct {
	pub     Publisher
	subject string
	log     *zap.Logger
}

// NewNATS returns a sink publishing under subject.
func NewNATS(pub Publisher, subject string, logger *zap.Logger) *NATS {
	return &NATS{pub: pub, subject: subject, log: logger}
}

// Subject returns the subject an alert for recipient is published on.
func (n *NATS) Subject(recipient string) string {
	return n.subject + "." + recipient
}

// Show publishes a. Failures are logged and otherwise ignored.
func (n *NATS) Show(a Alert) {
	if a.Recipient == "" {
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		n.log.Warn("alert encode failed", zap.Error(err))
		return
	}
	if err := n.pub.Publish(n.Subject(a.Recipient), data); err != nil {
		metrics.RecordAlert("publish_error")
		n.log.Warn("alert publish failed",
			zap.String("subject", n.Subject(a.Recipient)), zap.Error(err))
	}
}
