package automation

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/sellerpulse/internal/store"
)

type mapFinder struct {
	entries map[string]*store.DeliveryLogEntry
}

func (m *mapFinder) FindDelivery(_ context.Context, ruleID uuid.UUID, recipientID string) (*store.DeliveryLogEntry, error) {
	return m.entries[ruleID.String()+"/"+recipientID], nil
}

func TestCheckAndReserve(t *testing.T) {
	ruleID := uuid.New()
	finder := &mapFinder{entries: map[string]*store.DeliveryLogEntry{
		ruleID.String() + "/u1": {RuleID: ruleID, RecipientID: "u1", Status: store.DeliveryPendingFollow},
	}}
	guard := NewDedupGuard(finder, nil)

	handled, err := guard.CheckAndReserve(context.Background(), ruleID, "u1")
	if err != nil {
		t.Fatalf("CheckAndReserve() error: %v", err)
	}
	if !handled {
		t.Error("existing entry should report alreadyHandled")
	}

	handled, err = guard.CheckAndReserve(context.Background(), ruleID, "u2")
	if err != nil {
		t.Fatalf("CheckAndReserve() error: %v", err)
	}
	if handled {
		t.Error("fresh recipient should not be handled")
	}
}

func TestSeenEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	guard := NewDedupGuard(&mapFinder{}, rdb)
	ctx := context.Background()

	if guard.SeenEvent(ctx, "c1") {
		t.Error("first sighting should not be seen")
	}
	if !guard.SeenEvent(ctx, "c1") {
		t.Error("second sighting should be seen")
	}
	if guard.SeenEvent(ctx, "c2") {
		t.Error("different event should not be seen")
	}
}

func TestForgetEventReleasesReservation(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	guard := NewDedupGuard(&mapFinder{}, rdb)
	ctx := context.Background()

	if guard.SeenEvent(ctx, "c1") {
		t.Fatal("first sighting should not be seen")
	}
	guard.ForgetEvent(ctx, "c1")
	if guard.SeenEvent(ctx, "c1") {
		t.Error("a released event must be processable again")
	}
}

func TestSeenEventWithoutRedis(t *testing.T) {
	guard := NewDedupGuard(&mapFinder{}, nil)
	if guard.SeenEvent(context.Background(), "c1") {
		t.Error("no redis means the cache never reports seen")
	}
}

func TestSeenEventRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	guard := NewDedupGuard(&mapFinder{}, rdb)
	if guard.SeenEvent(context.Background(), "c1") {
		t.Error("redis being down must fall through to not-seen")
	}
}
