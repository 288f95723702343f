//go:build ignore
// +build ignore

package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// Creates the sellerpulse tables. Safe to re-run.
//
//	DATABASE_URL=postgres://... go run scripts/create_schema.go

const schema = `
CREATE TABLE IF NOT EXISTS automation_rules (
    id UUID PRIMARY KEY,
    account_id TEXT NOT NULL,
    media_id TEXT NOT NULL,
    keywords TEXT[] NOT NULL DEFAULT '{}',
    match_any BOOLEAN NOT NULL DEFAULT false,
    require_follow BOOLEAN NOT NULL DEFAULT false,
    follow_message TEXT NOT NULL DEFAULT '',
    link_message TEXT NOT NULL DEFAULT '',
    link_url TEXT NOT NULL DEFAULT '',
    link_title TEXT NOT NULL DEFAULT '',
    link_image_url TEXT NOT NULL DEFAULT '',
    active BOOLEAN NOT NULL DEFAULT true,
    total_sent BIGINT NOT NULL DEFAULT 0,
    last_sent_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rules_media_active
    ON automation_rules (media_id) WHERE active = true;
CREATE INDEX IF NOT EXISTS idx_rules_account
    ON automation_rules (account_id, created_at DESC);

CREATE TABLE IF NOT EXISTS automation_deliveries (
    id UUID PRIMARY KEY,
    rule_id UUID NOT NULL REFERENCES automation_rules(id),
    recipient_id TEXT NOT NULL,
    recipient_username TEXT NOT NULL DEFAULT '',
    comment_id TEXT NOT NULL DEFAULT '',
    comment_text TEXT NOT NULL DEFAULT '',
    message_text TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    link_sent_at TIMESTAMPTZ
);

-- One delivery per (rule, recipient). This is the idempotency backstop
-- for webhook redeliveries.
CREATE UNIQUE INDEX IF NOT EXISTS idx_deliveries_rule_recipient
    ON automation_deliveries (rule_id, recipient_id);
CREATE INDEX IF NOT EXISTS idx_deliveries_pending
    ON automation_deliveries (recipient_id, created_at DESC)
    WHERE status = 'pending_follow';

CREATE TABLE IF NOT EXISTS instagram_accounts (
    account_id TEXT PRIMARY KEY,
    access_token TEXT NOT NULL,
    platform_user_id TEXT NOT NULL,
    connected_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tracking_links (
    id UUID PRIMARY KEY,
    account_id TEXT NOT NULL,
    code TEXT NOT NULL UNIQUE,
    destination TEXT NOT NULL,
    click_count BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL
);
`

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	log.Println("schema applied")
}
