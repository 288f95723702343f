package automation

import (
	"strings"

	"github.com/ignite/sellerpulse/internal/store"
)

// DefaultKeywords is the trigger set used when a rule has no keywords
// configured and is not a wildcard. Korean needs no case folding; the
// latin entries are matched case-insensitively like everything else.
var DefaultKeywords = []string{"링크", "link", "구매", "정보", "info", "price", "가격"}

// Matches reports whether a comment satisfies the rule's trigger
// condition. Substring containment, not word match: this is a deliberately
// low-precision filter that favors recall.
func Matches(rule *store.AutomationRule, commentText string) bool {
	if rule.MatchAny {
		return true
	}

	keywords := rule.Keywords
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}

	text := strings.ToLower(commentText)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
