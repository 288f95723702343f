//go:build ignore
// +build ignore

package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	_ "github.com/lib/pq"
)

// Seeds a demo follow-gated automation rule for local testing.
//
//	DATABASE_URL=postgres://... go run scripts/seed_demo_rule.go <account_id> <media_id>

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if len(os.Args) < 3 {
		log.Fatal("usage: seed_demo_rule.go <account_id> <media_id>")
	}
	accountID, mediaID := os.Args[1], os.Args[2]

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id := uuid.New()
	now := time.Now()
	_, err = db.ExecContext(ctx, `INSERT INTO automation_rules
		(id, account_id, media_id, keywords, match_any, require_follow,
		 follow_message, link_message, link_url, link_title, link_image_url,
		 active, total_sent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, true, $5, $6, $7, $8, '', true, 0, $9, $9)`,
		id, accountID, mediaID,
		pq.StringArray{"링크", "link", "구매"},
		"{{ username }}님, 팔로우하고 '팔로우했어요'라고 답장해 주시면 링크를 보내드릴게요!",
		"기다려 주셔서 감사합니다! 요청하신 링크입니다 🙌",
		"https://shop.example.com/products/demo",
		"신제품 보러가기",
		now)
	if err != nil {
		log.Fatalf("insert rule: %v", err)
	}
	log.Printf("seeded rule %s for account=%s media=%s", id, accountID, mediaID)
}
