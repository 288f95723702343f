package automation

import (
	"strings"

	"github.com/google/uuid"
)

// followPayloadPrefix tags postback/quick-reply payloads issued by the
// follow-gate flow. The payload round-trips the rule id and target link
// through the provider so the confirmation event is self-describing.
const followPayloadPrefix = "FOLLOW_CHECK"

// followConfirmations is the free-text vocabulary accepted as a follow
// confirmation when a client drops the structured payload.
var followConfirmations = []string{
	"팔로우했어요", "팔로우 했어요", "팔로우", "했어요", "완료",
	"done", "followed", "follow",
}

// EncodeFollowPayload packs (rule, link) into a postback payload
func EncodeFollowPayload(ruleID uuid.UUID, linkURL string) string {
	return followPayloadPrefix + "|" + ruleID.String() + "|" + linkURL
}

// DecodeFollowPayload unpacks a payload produced by EncodeFollowPayload.
// ok is false for foreign or malformed payloads.
func DecodeFollowPayload(payload string) (ruleID uuid.UUID, linkURL string, ok bool) {
	parts := strings.SplitN(payload, "|", 3)
	if len(parts) != 3 || parts[0] != followPayloadPrefix {
		return uuid.Nil, "", false
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, parts[2], true
}

// IsFollowConfirmation reports whether free text reads as "I followed you"
func IsFollowConfirmation(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return false
	}
	for _, phrase := range followConfirmations {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
