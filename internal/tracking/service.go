// Package tracking implements short redirect links with click counting.
// Clicks are buffered in redis and flushed to postgres periodically;
// without redis every click writes through to the database.
package tracking

import (
	"context"
	"crypto/rand"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/sellerpulse/internal/store"
)

const clickKeyPrefix = "tracking:clicks:"

// codeAlphabet deliberately omits look-alike characters (0/O, 1/l/I)
const codeAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Service manages tracking links
type Service struct {
	store *store.Store
	rdb   *redis.Client // nil means write-through to postgres
}

// NewService creates a tracking service. rdb may be nil.
func NewService(st *store.Store, rdb *redis.Client) *Service {
	return &Service{store: st, rdb: rdb}
}

// GenerateCode returns a random 8-character short code
func GenerateCode() string {
	buf := make([]byte, 8)
	rand.Read(buf)
	var sb strings.Builder
	for _, b := range buf {
		sb.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
	}
	return sb.String()
}

// CreateLink registers a new short link. An empty code gets a generated one.
func (s *Service) CreateLink(ctx context.Context, accountID, destination, code string) (*store.TrackingLink, error) {
	if code == "" {
		code = GenerateCode()
	}
	link := &store.TrackingLink{
		AccountID:   accountID,
		Code:        code,
		Destination: destination,
	}
	if err := s.store.CreateTrackingLink(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// Resolve returns the link for a code, or nil if unknown
func (s *Service) Resolve(ctx context.Context, code string) (*store.TrackingLink, error) {
	return s.store.GetTrackingLinkByCode(ctx, code)
}

// RecordClick counts one click. Buffered in redis when available so the
// redirect path never waits on postgres.
func (s *Service) RecordClick(ctx context.Context, code string) {
	if s.rdb != nil {
		if err := s.rdb.Incr(ctx, clickKeyPrefix+code).Err(); err == nil {
			return
		} else {
			log.Printf("[Tracking] redis incr error, writing through: %v", err)
		}
	}
	if err := s.store.AddClicks(ctx, code, 1); err != nil {
		log.Printf("[Tracking] click write error code=%s: %v", code, err)
	}
}

// FlushClicks moves buffered redis counters into postgres. Called on a
// ticker from StartFlushLoop and once more on shutdown.
func (s *Service) FlushClicks(ctx context.Context) {
	if s.rdb == nil {
		return
	}

	iter := s.rdb.Scan(ctx, 0, clickKeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		n, err := s.rdb.GetDel(ctx, key).Int64()
		if err != nil || n == 0 {
			continue
		}
		code := strings.TrimPrefix(key, clickKeyPrefix)
		if err := s.store.AddClicks(ctx, code, n); err != nil {
			log.Printf("[Tracking] flush error code=%s: %v", code, err)
			// Put the count back so the next flush retries it.
			s.rdb.IncrBy(ctx, key, n)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("[Tracking] flush scan error: %v", err)
	}
}

// StartFlushLoop flushes buffered clicks until ctx is cancelled
func (s *Service) StartFlushLoop(ctx context.Context, interval time.Duration) {
	if s.rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.FlushClicks(context.Background())
				return
			case <-ticker.C:
				s.FlushClicks(ctx)
			}
		}
	}()
}
