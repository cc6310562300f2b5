// Package mention extracts @-mentions from comment and post content.
//
// Two forms are recognized: the plain marker [@nickname:user_id] and the
// rich-text anchor <a class="mention..." data-user-id="user_id">@nickname</a>.
package mention

import (
	"regexp"
	"strings"
)

// Mention is one mentioned user. UserID is the public user id.
type Mention struct {
	Nickname string
	UserID   string
}

var (
	markerRe  = regexp.MustCompile(`\[@([^:\]]+):([^\]]+)\]`)
	anchorRe  = regexp.MustCompile(`<a\b([^>]*)>@([^<]+)</a>`)
	classRe   = regexp.MustCompile(`\bclass="mention[^"]*"`)
	userAttRe = regexp.MustCompile(`\bdata-user-id="([^"]+)"`)
)

// Extract returns mentions in order of first appearance, one per user id.
func Extract(text string) []Mention {
	if text == "" {
		return nil
	}

	var out []Mention
	seen := make(map[string]bool)
	add := func(nick, uid string) {
		uid = strings.TrimSpace(uid)
		if uid == "" || seen[uid] {
			return
		}
		seen[uid] = true
		out = append(out, Mention{Nickname: strings.TrimSpace(nick), UserID: uid})
	}

	for _, m := range markerRe.FindAllStringSubmatch(text, -1) {
		add(m[1], m[2])
	}
	for _, m := range anchorRe.FindAllStringSubmatch(text, -1) {
		attrs := m[1]
		if !classRe.MatchString(attrs) {
			continue
		}
		if uid := userAttRe.FindStringSubmatch(attrs); uid != nil {
			add(m[2], uid[1])
		}
	}
	return out
}

// Has reports whether text contains at least one mention.
func Has(text string) bool {
	return len(Extract(text)) > 0
}

// UserIDs returns the distinct public user ids mentioned in text.
func UserIDs(text string) []string {
	ms := Extract(text)
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.UserID
	}
	return ids
}
