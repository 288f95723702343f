package automation

import (
	"encoding/json"
	"testing"
)

func TestParseEntryComments(t *testing.T) {
	var entry WebhookEntry
	raw := `{
		"id": "17840001",
		"changes": [
			{"field": "comments", "value": {"id": "c1", "text": "링크 주세요",
				"from": {"id": "u1", "username": "buyer"}, "media": {"id": "m1"}}},
			{"field": "mentions", "value": {"id": "x"}},
			{"field": "comments", "value": {"text": "no ids"}}
		]
	}`
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}

	comments, messages := ParseEntry(entry)
	if len(messages) != 0 {
		t.Errorf("messages = %d, want 0", len(messages))
	}
	if len(comments) != 1 {
		t.Fatalf("comments = %d, want 1 (non-comment field and malformed value dropped)", len(comments))
	}
	got := comments[0]
	if got.CommentID != "c1" || got.AuthorID != "u1" || got.MediaID != "m1" {
		t.Errorf("comment = %+v", got)
	}
	if got.AccountID != "17840001" {
		t.Errorf("AccountID = %q", got.AccountID)
	}
}

func TestParseEntryMessagingKinds(t *testing.T) {
	var entry WebhookEntry
	raw := `{
		"id": "17840001",
		"messaging": [
			{"sender": {"id": "u1"}, "recipient": {"id": "17840001"},
				"postback": {"payload": "FOLLOW_CHECK|x|y"}},
			{"sender": {"id": "u2"}, "recipient": {"id": "17840001"},
				"message": {"text": "팔로우했어요", "quick_reply": {"payload": "FOLLOW_CHECK|a|b"}}},
			{"sender": {"id": "u3"}, "recipient": {"id": "17840001"},
				"message": {"text": "팔로우했어요"}},
			{"sender": {"id": "17840001"}, "recipient": {"id": "u4"},
				"message": {"text": "our own outbound"}},
			{"sender": {"id": "u5"}, "recipient": {"id": "17840001"},
				"message": {"text": "echo copy", "is_echo": true}},
			{"sender": {"id": "u6"}, "recipient": {"id": "17840001"}}
		]
	}`
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}

	_, messages := ParseEntry(entry)
	if len(messages) != 3 {
		t.Fatalf("messages = %d, want 3 (self, echo and empty dropped)", len(messages))
	}

	if messages[0].Kind != KindCallback || messages[0].Payload != "FOLLOW_CHECK|x|y" {
		t.Errorf("messages[0] = %+v, want callback", messages[0])
	}
	if messages[1].Kind != KindQuickReply || messages[1].Payload != "FOLLOW_CHECK|a|b" {
		t.Errorf("messages[1] = %+v, want quick reply", messages[1])
	}
	if messages[2].Kind != KindFreeText || messages[2].Text != "팔로우했어요" {
		t.Errorf("messages[2] = %+v, want free text", messages[2])
	}
}
