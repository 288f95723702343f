package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return db, mock, func() { db.Close() }
}

func ruleColumns() []string {
	return []string{"id", "account_id", "media_id", "keywords", "match_any", "require_follow",
		"follow_message", "link_message", "link_url", "link_title", "link_image_url",
		"active", "total_sent", "last_sent_at", "created_at", "updated_at"}
}

func deliveryColumns() []string {
	return []string{"id", "rule_id", "recipient_id", "recipient_username", "comment_id",
		"comment_text", "message_text", "status", "created_at", "link_sent_at"}
}

func TestFindActiveRuleForMedia(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	ruleID := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows(ruleColumns()).
		AddRow(ruleID, "acct-1", "media-9", pq.StringArray{"링크", "구매"}, false, true,
			"Follow me!", "Here you go", "https://example.com/p/1", "My product", "",
			true, 3, nil, now, now)

	mock.ExpectQuery("SELECT (.+) FROM automation_rules WHERE media_id").
		WithArgs("media-9").
		WillReturnRows(rows)

	rule, err := NewStore(db).FindActiveRuleForMedia(context.Background(), "media-9")
	if err != nil {
		t.Fatalf("FindActiveRuleForMedia() error: %v", err)
	}
	if rule == nil {
		t.Fatal("expected a rule, got nil")
	}
	if rule.ID != ruleID {
		t.Errorf("rule.ID = %s, want %s", rule.ID, ruleID)
	}
	if len(rule.Keywords) != 2 || rule.Keywords[0] != "링크" {
		t.Errorf("rule.Keywords = %v", rule.Keywords)
	}
	if !rule.RequireFollow {
		t.Error("rule.RequireFollow should be true")
	}
}

func TestFindActiveRuleForMediaMiss(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM automation_rules WHERE media_id").
		WithArgs("media-none").
		WillReturnError(sql.ErrNoRows)

	rule, err := NewStore(db).FindActiveRuleForMedia(context.Background(), "media-none")
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if rule != nil {
		t.Errorf("expected nil rule, got %+v", rule)
	}
}

func TestFindDeliveryMiss(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM automation_deliveries WHERE rule_id").
		WillReturnError(sql.ErrNoRows)

	entry, err := NewStore(db).FindDelivery(context.Background(), uuid.New(), "u1")
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if entry != nil {
		t.Errorf("expected nil entry, got %+v", entry)
	}
}

func TestCreateDelivery(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO automation_deliveries").
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &DeliveryLogEntry{
		RuleID:      uuid.New(),
		RecipientID: "u1",
		CommentID:   "c1",
		CommentText: "링크 주세요",
		MessageText: "Follow me!",
		Status:      DeliveryPendingFollow,
	}
	if err := NewStore(db).CreateDelivery(context.Background(), entry); err != nil {
		t.Fatalf("CreateDelivery() error: %v", err)
	}
	if entry.ID == uuid.Nil {
		t.Error("CreateDelivery should assign an ID")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreateDelivery should stamp CreatedAt")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdateDeliveryStatusLinkSentStampsTimestamp(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	ruleID := uuid.New()
	mock.ExpectExec("UPDATE automation_deliveries SET status = (.+), link_sent_at").
		WithArgs(ruleID, "u1", DeliveryLinkSent, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewStore(db).UpdateDeliveryStatus(context.Background(), ruleID, "u1", DeliveryLinkSent); err != nil {
		t.Fatalf("UpdateDeliveryStatus() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdateDeliveryStatusFailed(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	ruleID := uuid.New()
	mock.ExpectExec("UPDATE automation_deliveries SET status").
		WithArgs(ruleID, "u1", DeliveryFailed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewStore(db).UpdateDeliveryStatus(context.Background(), ruleID, "u1", DeliveryFailed); err != nil {
		t.Fatalf("UpdateDeliveryStatus() error: %v", err)
	}
}

func TestIncrementRuleCounters(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	ruleID := uuid.New()
	mock.ExpectExec("UPDATE automation_rules SET total_sent = total_sent \\+ 1").
		WithArgs(ruleID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewStore(db).IncrementRuleCounters(context.Background(), ruleID); err != nil {
		t.Fatalf("IncrementRuleCounters() error: %v", err)
	}
}

func TestFindLatestPendingFollow(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	ruleID := uuid.New()
	rows := sqlmock.NewRows(deliveryColumns()).
		AddRow(uuid.New(), ruleID, "u1", "buyer", "c1", "링크 주세요",
			"Follow me!", DeliveryPendingFollow, time.Now(), nil)

	mock.ExpectQuery("SELECT (.+) FROM automation_deliveries WHERE recipient_id = (.+) AND status = 'pending_follow'").
		WithArgs("u1").
		WillReturnRows(rows)

	entry, err := NewStore(db).FindLatestPendingFollow(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FindLatestPendingFollow() error: %v", err)
	}
	if entry == nil || entry.RuleID != ruleID {
		t.Fatalf("entry = %+v, want rule %s", entry, ruleID)
	}
}

func TestFindLinkTarget(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	ruleID := uuid.New()
	rows := sqlmock.NewRows([]string{"link_url", "link_title", "link_image_url"}).
		AddRow("https://example.com/p/1", "My product", "https://example.com/p/1.jpg")

	mock.ExpectQuery("SELECT link_url, link_title, link_image_url FROM automation_rules").
		WithArgs(ruleID).
		WillReturnRows(rows)

	target, err := NewStore(db).FindLinkTarget(context.Background(), ruleID)
	if err != nil {
		t.Fatalf("FindLinkTarget() error: %v", err)
	}
	if target == nil {
		t.Fatal("expected a link target, got nil")
	}
	if target.URL != "https://example.com/p/1" || target.Title != "My product" {
		t.Errorf("target = %+v", target)
	}
}

func TestFindLinkTargetMiss(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT link_url, link_title, link_image_url FROM automation_rules").
		WillReturnError(sql.ErrNoRows)

	target, err := NewStore(db).FindLinkTarget(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if target != nil {
		t.Errorf("expected nil target, got %+v", target)
	}
}

func TestFindAccountCredentialsMiss(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT access_token, platform_user_id FROM instagram_accounts").
		WithArgs("acct-x").
		WillReturnError(sql.ErrNoRows)

	creds, err := NewStore(db).FindAccountCredentials(context.Background(), "acct-x")
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if creds != nil {
		t.Errorf("expected nil creds, got %+v", creds)
	}
}
