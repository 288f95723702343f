package automation

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/sellerpulse/internal/store"
)

// DeliveryFinder is the store surface the guard needs
type DeliveryFinder interface {
	FindDelivery(ctx context.Context, ruleID uuid.UUID, recipientID string) (*store.DeliveryLogEntry, error)
}

// DedupGuard is the idempotency gate in front of the flow engine. The
// persisted delivery log is the source of truth; the optional redis cache
// only short-circuits provider redeliveries of the identical webhook
// event before they reach the database.
//
// This is a best-effort check, not a lock: between the lookup and the
// subsequent insert there is a non-atomic gap. The unique index on
// (rule_id, recipient_id) catches the rare true race at insert time.
type DedupGuard struct {
	finder DeliveryFinder
	rdb    *redis.Client // nil disables the event cache
	ttl    time.Duration
}

// NewDedupGuard creates a guard. rdb may be nil.
func NewDedupGuard(finder DeliveryFinder, rdb *redis.Client) *DedupGuard {
	return &DedupGuard{finder: finder, rdb: rdb, ttl: 24 * time.Hour}
}

const eventKeyPrefix = "webhook:event:"

// SeenEvent reports whether this exact webhook event id was already
// accepted recently, reserving the id when it was not. Redis being down
// or unconfigured means "not seen" — the database check still governs.
//
// A reservation is provisional: if the flow ends without a delivery
// entry the caller must release it with ForgetEvent, because an absent
// entry is the retry signal and the cache must not outlive it.
func (g *DedupGuard) SeenEvent(ctx context.Context, eventID string) bool {
	if g.rdb == nil || eventID == "" {
		return false
	}
	set, err := g.rdb.SetNX(ctx, eventKeyPrefix+eventID, 1, g.ttl).Result()
	if err != nil {
		log.Printf("[DedupGuard] redis setnx error, falling through: %v", err)
		return false
	}
	return !set
}

// ForgetEvent releases a reservation taken by SeenEvent so the
// provider's redelivery of the same event is processed again.
func (g *DedupGuard) ForgetEvent(ctx context.Context, eventID string) {
	if g.rdb == nil || eventID == "" {
		return
	}
	if err := g.rdb.Del(ctx, eventKeyPrefix+eventID).Err(); err != nil {
		log.Printf("[DedupGuard] redis del error event=%s: %v", eventID, err)
	}
}

// CheckAndReserve reports whether (rule, recipient) was already handled.
// When it returns true the caller must stop: no second message of any
// kind is ever sent to the same recipient for the same rule.
func (g *DedupGuard) CheckAndReserve(ctx context.Context, ruleID uuid.UUID, recipientID string) (alreadyHandled bool, err error) {
	entry, err := g.finder.FindDelivery(ctx, ruleID, recipientID)
	if err != nil {
		return false, err
	}
	return entry != nil, nil
}
