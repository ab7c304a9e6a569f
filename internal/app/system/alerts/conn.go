package alerts

import (
	"sync"
	"time"

	"github.com/dalemusser/solarhub/internal/app/system/metrics"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// writeWait bounds a single frame write to the client.
const writeWait = 10 * time.Second

// queueSize is how many alerts may wait for the writer before new ones drop.
const queueSize = 32

// FrameWriter is the part of a websocket connection the sink writes to.
type FrameWriter interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
}

var _ FrameWriter = (*websocket.Conn)(nil)

// Message is the JSON frame pushed to the client.
type Message struct {
	Type  string `json:"type"`
	Alert Alert  `json:"alert"`
}

// Conn is a Sink bound to one websocket connection. Alerts beyond the rate
// budget or the queue are dropped; the durable notification record is
// unaffected by a dropped alert.
type Conn struct {
	ws      FrameWriter
	limiter *rate.Limiter
	out     chan Alert
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	log     *zap.Logger
}

// NewConn starts the writer goroutine for ws. perSecond and burst size the
// token bucket; perSecond <= 0 disables throttling.
func NewConn(ws FrameWriter, perSecond float64, burst int, logger *zap.Logger) *Conn {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	c := &Conn{
		ws:      ws,
		limiter: rate.NewLimiter(limit, burst),
		out:     make(chan Alert, queueSize),
		done:    make(chan struct{}),
		log:     logger,
	}
	c.wg.Add(1)
	go c.writeLoop()
	return c
}

// Show queues a for delivery without blocking.
func (c *Conn) Show(a Alert) {
	select {
	case <-c.done:
		metrics.RecordAlert("closed")
		return
	default:
	}

	if !c.limiter.Allow() {
		metrics.RecordAlert("throttled")
		c.log.Debug("alert throttled", zap.String("recipient", a.Recipient), zap.String("category", a.Category))
		return
	}

	select {
	case c.out <- a:
	case <-c.done:
		metrics.RecordAlert("closed")
	default:
		metrics.RecordAlert("overflow")
		c.log.Debug("alert queue full", zap.String("recipient", a.Recipient))
	}
}

// Close stops the writer and waits for it. Idempotent.
func (c *Conn) Close() {
	c.once.Do(func() { close(c.done) })
	c.wg.Wait()
}

func (c *Conn) writeLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case a := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(Message{Type: "alert", Alert: a}); err != nil {
				c.log.Debug("alert write failed; closing sink", zap.Error(err))
				c.once.Do(func() { close(c.done) })
				return
			}
			metrics.RecordAlert("sent")
		}
	}
}
