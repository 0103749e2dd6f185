package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anjiri1684/tutor_marketplace/notifications"
	"github.com/anjiri1684/tutor_marketplace/testutil"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notifications.Notice
}

func (n *recordingNotifier) Notify(_ context.Context, notices ...notifications.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notices...)
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.notices))
	for _, x := range n.notices {
		out = append(out, x.Kind)
	}
	return out
}

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T) (*Ledger, *gorm.DB, *recordingNotifier) {
	t.Helper()
	db := testutil.OpenDB(t)
	n := &recordingNotifier{}
	l := NewLedger(db, n, zap.NewNop(), decimal.RequireFromString("0.80"))
	return l, db, n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
