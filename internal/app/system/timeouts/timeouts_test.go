package timeouts_test

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/solarhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

func TestConfigure_IgnoresZeroValues(t *testing.T) {
	t.Cleanup(timeouts.Reset)

	timeouts.Configure(timeouts.Config{Write: 3 * time.Second})

	cur := timeouts.Current()
	if cur.Write != 3*time.Second {
		t.Errorf("Write: got %v, want 3s", cur.Write)
	}
	if cur.Read != timeouts.DefaultRead {
		t.Errorf("Read: got %v, want default %v", cur.Read, timeouts.DefaultRead)
	}
	if cur.Ping != timeouts.DefaultPing {
		t.Errorf("Ping: got %v, want default %v", cur.Ping, timeouts.DefaultPing)
	}
}

func TestReset(t *testing.T) {
	timeouts.Configure(timeouts.Config{Ping: time.Minute, Read: time.Minute, Write: time.Minute})
	timeouts.Reset()
	if timeouts.Ping() != timeouts.DefaultPing || timeouts.Read() != timeouts.DefaultRead || timeouts.Write() != timeouts.DefaultWrite {
		t.Errorf("expected defaults after Reset, got %+v", timeouts.Current())
	}
}

func TestWithTimeout_Expires(t *testing.T) {
	ctx, cancel := timeouts.WithTimeout(context.Background(), time.Millisecond, zap.NewNop(), "test")
	defer cancel()

	select {
	case <-ctx.Done():
		if ctx.Err() != context.DeadlineExceeded {
			t.Errorf("expected deadline exceeded, got %v", ctx.Err())
		}
	case <-time.After(time.Second):
		t.Fatal("context did not expire")
	}
}
