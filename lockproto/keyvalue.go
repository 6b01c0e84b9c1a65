package lockproto

import (
	"strings"
)

// Token is one extracted protocol pair in encounter order
type Token struct {
	Key   string
	Value string
	// Legacy marks pairs written in the older key@value form
	Legacy bool
}

// keyAliases maps historical and stylistic key spellings to canonical form.
// Lookup happens after lowercasing, so mixed-case variants collapse too.
var keyAliases = map[string]string{
	"lock_amount":   "lockamount",
	"lock_duration": "lockduration",
	"content_type":  "contenttype",
	"contenttype":   "contenttype",
	"post_id":       "postid",
	"total_options": "totaloptions",
	"options_hash":  "optionshash",
	"option_index":  "optionindex",
	"vote_question": "votequestion",
	"is_vote":       "isvote",
	"is_locked":     "islocked",
	"alt_text":      "alt",
	"image_alt":     "alt",
}

// NormalizeKey lowercases a token key and collapses known aliases
func NormalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if canonical, ok := keyAliases[k]; ok {
		return canonical
	}
	return k
}

// TokenSet is the structured view of a transaction's text items: the ordered
// token list plus the derived free-text and marker facts the interpreter
// consumes.
type TokenSet struct {
	Tokens []Token
	// Marker reports whether the application marker appeared, either as a
	// bare item or as an app= pair
	Marker bool
	// FreeText is the chosen free-standing content item, empty if none
	FreeText string
}

// Get returns the first value recorded for a normalized key
func (s *TokenSet) Get(key string) (string, bool) {
	for _, t := range s.Tokens {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

// Values returns every value recorded for a normalized key, in order
func (s *TokenSet) Values(key string) []string {
	var vals []string
	for _, t := range s.Tokens {
		if t.Key == key {
			vals = append(vals, t.Value)
		}
	}
	return vals
}

// Has reports whether a normalized key appeared at all
func (s *TokenSet) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// ExtractTokens walks the classified items and assembles the token set for a
// marker string. Only text items participate; binary and hex items are the
// media pipeline's concern.
func ExtractTokens(items []Item, marker string) *TokenSet {
	set := &TokenSet{}

	var freeCandidates []string
	for _, item := range items {
		if item.Class != ClassText {
			continue
		}
		text := item.Text

		// Bare marker item. Detected exactly, never as a substring, and it
		// never competes for free-text.
		if text == marker {
			set.Marker = true
			continue
		}

		if tok, ok := splitToken(text); ok {
			if tok.Key == "app" && tok.Value == marker {
				set.Marker = true
			}
			set.Tokens = append(set.Tokens, tok)
			continue
		}

		freeCandidates = append(freeCandidates, text)
	}

	set.FreeText = pickFreeText(freeCandidates)
	return set
}

// splitToken parses key=value or legacy key@value. A parseable pair needs a
// non-empty key of plausible shape; anything else stays free text.
func splitToken(text string) (Token, bool) {
	sep := strings.IndexByte(text, '=')
	legacy := false
	if sep < 0 {
		sep = strings.IndexByte(text, '@')
		legacy = true
	}
	if sep <= 0 {
		return Token{}, false
	}

	key := text[:sep]
	if !plausibleKey(key) {
		return Token{}, false
	}

	return Token{
		Key:    NormalizeKey(key),
		Value:  text[sep+1:],
		Legacy: legacy,
	}, true
}

// plausibleKey keeps sentence-shaped text out of the token list: keys are
// short identifiers without spaces.
func plausibleKey(key string) bool {
	if len(key) == 0 || len(key) > 64 {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.':
		default:
			return false
		}
	}
	return true
}

// pickFreeText selects the content body among free-standing items: the
// longest candidate that does not look like serialized structure.
func pickFreeText(candidates []string) string {
	best := ""
	for _, c := range candidates {
		if !contentCandidate(c) {
			continue
		}
		if len(c) > len(best) {
			best = c
		}
	}
	return best
}

// contentCandidate rejects items that are structural leftovers rather than
// human text.
func contentCandidate(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if strings.ContainsAny(trimmed, "{}[]|") {
		return false
	}
	return true
}

// SplitTags splits a tag list on the accepted delimiters and deduplicates
// while keeping encounter order.
func SplitTags(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})

	seen := make(map[string]struct{}, len(fields))
	var tags []string
	for _, f := range fields {
		tag := strings.TrimSpace(f)
		if tag == "" {
			continue
		}
		lower := strings.ToLower(tag)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
