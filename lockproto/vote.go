package lockproto

import (
	"sort"
	"strconv"
	"strings"
)

// voteOption pairs an option label with its declared position, when stated
type voteOption struct {
	label    string
	index    int
	hasIndex bool
}

// parseVote assembles the vote fields from an ordered token set.
//
// Repeated content values carry the vote in the canonical encoding: the first
// content item is the question, the following items up to the declared option
// count are the options in encounter order. An explicit votequestion value
// takes the question slot, leaving every content item as an option. Older
// transactions spell their options as option tokens instead; those are read
// the same way when no content items follow the question.
//
// A declared optionindex travels with the item it follows. Declared indexes
// are advisory: they reorder the options only when every option carries a
// distinct, valid index, otherwise encounter order stands.
func parseVote(set *TokenSet) *Vote {
	vote := &Vote{}

	if q, ok := set.Get("votequestion"); ok {
		vote.Question = strings.TrimSpace(q)
	}
	if h, ok := set.Get("optionshash"); ok {
		vote.OptionsHash = h
	}
	if c, ok := set.Get("totaloptions"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(c)); err == nil && n >= 0 {
			vote.DeclaredOptionCount = n
		}
	}

	opts := collectContentOptions(set, vote)
	if len(opts) == 0 {
		opts = collectOptionTokens(set)
		if vote.Question == "" && len(opts) > 0 {
			// Legacy layout: the question rides as the first free-standing
			// option ahead of the declared ones.
			vote.Question = opts[0].label
			opts = opts[1:]
		}
	}
	if vote.DeclaredOptionCount > 0 && len(opts) > vote.DeclaredOptionCount {
		opts = opts[:vote.DeclaredOptionCount]
	}

	vote.Options = orderOptions(opts)
	return vote
}

// collectContentOptions walks content tokens in order. The first one fills
// the question when no explicit votequestion claimed it; the rest become
// options.
func collectContentOptions(set *TokenSet, vote *Vote) []voteOption {
	var opts []voteOption
	questionTaken := vote.Question != ""
	for _, t := range set.Tokens {
		switch t.Key {
		case "content":
			label := strings.TrimSpace(t.Value)
			if label == "" {
				continue
			}
			if !questionTaken {
				vote.Question = label
				questionTaken = true
				continue
			}
			opts = append(opts, voteOption{label: label})
		case "optionindex":
			attachIndex(opts, t.Value)
		}
	}
	return opts
}

// collectOptionTokens walks option tokens in order, the pre-content encoding.
func collectOptionTokens(set *TokenSet) []voteOption {
	var opts []voteOption
	for _, t := range set.Tokens {
		switch t.Key {
		case "option":
			label := strings.TrimSpace(t.Value)
			if label == "" {
				continue
			}
			opts = append(opts, voteOption{label: label})
		case "optionindex":
			attachIndex(opts, t.Value)
		}
	}
	return opts
}

// attachIndex binds a declared index to the option immediately preceding it.
// First declaration wins; invalid values are ignored.
func attachIndex(opts []voteOption, value string) {
	if len(opts) == 0 {
		return
	}
	idx, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || idx < 0 {
		return
	}
	last := &opts[len(opts)-1]
	if !last.hasIndex {
		last.index = idx
		last.hasIndex = true
	}
}

// orderOptions applies declared indexes when they form a complete, distinct
// set; otherwise encounter order is kept.
func orderOptions(opts []voteOption) []string {
	if len(opts) == 0 {
		return nil
	}

	usable := true
	seen := make(map[int]struct{}, len(opts))
	for _, o := range opts {
		if !o.hasIndex {
			usable = false
			break
		}
		if _, dup := seen[o.index]; dup {
			usable = false
			break
		}
		seen[o.index] = struct{}{}
	}

	if usable {
		sorted := make([]voteOption, len(opts))
		copy(sorted, opts)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].index < sorted[j].index
		})
		opts = sorted
	}

	labels := make([]string, 0, len(opts))
	for _, o := range opts {
		labels = append(labels, o.label)
	}
	return labels
}
