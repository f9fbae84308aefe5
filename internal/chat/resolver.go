package chat

import (
	"regexp"
	"strconv"
	"strings"
)

var ordinalRe = regexp.MustCompile(`\b(\d+)\b`)

// Filler words that never identify an email on their own.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "from": true,
	"that": true, "this": true, "with": true, "about": true,
	"email": true, "mail": true, "message": true, "one": true,
	"please": true, "delete": true, "remove": true, "reply": true,
	"summarize": true, "summary": true, "show": true,
	"latest": true, "last": true, "first": true,
}

// findEmail resolves a textual reference against the session's email
// snapshot. Strategies are tried in order: anaphora ("that"/"this"),
// recency ("latest"/"last"), ordinal index, sender after "from", then a
// subject word match. Ordinals outside the snapshot resolve to nothing
// rather than falling through to a looser match.
func findEmail(sess *Session, text string) *EmailSummary {
	emails := sess.LastEmails

	if strings.Contains(text, "that") || strings.Contains(text, "this") {
		if sess.LastSelected != nil {
			sel := *sess.LastSelected
			return &sel
		}
	}

	if strings.Contains(text, "latest") || strings.Contains(text, "last") {
		if len(emails) > 0 {
			first := emails[0]
			return &first
		}
	}

	if m := ordinalRe.FindString(text); m != "" {
		idx, err := strconv.Atoi(m)
		if err != nil || idx < 1 || idx > len(emails) {
			return nil
		}
		match := emails[idx-1]
		return &match
	}

	if i := strings.Index(text, "from "); i >= 0 {
		sender := strings.TrimSpace(text[i+len("from "):])
		if sender != "" {
			for _, e := range emails {
				if strings.Contains(strings.ToLower(e.From), sender) {
					match := e
					return &match
				}
			}
		}
	}

	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,!?\"'")
		if len(word) < 3 || stopWords[word] {
			continue
		}
		for _, e := range emails {
			if strings.Contains(strings.ToLower(e.Subject), word) {
				match := e
				return &match
			}
		}
	}

	return nil
}
