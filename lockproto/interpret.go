package lockproto

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nedzof/lockd.app-sub000/chain"
)

// Interpreter turns a transaction's extracted data items into a canonical
// record. It is stateless across transactions and safe for concurrent use.
type Interpreter struct {
	marker string
	logger *slog.Logger
}

// NewInterpreter creates an interpreter for the given application marker.
// An empty marker selects DefaultMarker.
func NewInterpreter(marker string, logger *slog.Logger) *Interpreter {
	if marker == "" {
		marker = DefaultMarker
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{marker: marker, logger: logger}
}

// Interpret classifies the transaction and assembles its record. It returns
// nil for transactions that do not carry the application marker: absence of
// the marker is the normal case, not a failure.
//
// A malformed payload must never take down the pipeline, so any panic while
// decoding a single transaction is contained here and reported as a skipped
// transaction.
func (in *Interpreter) Interpret(tx *chain.Tx, raw [][]byte) (rec *Record) {
	if tx == nil || len(raw) == 0 {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			in.logger.Error("transaction interpretation panicked",
				"tx_id", tx.ID,
				"panic", fmt.Sprintf("%v", r))
			rec = nil
		}
	}()

	items := ClassifyItems(raw)
	set := ExtractTokens(items, in.marker)
	if !set.Marker {
		return nil
	}

	rec = &Record{
		Kind:        KindUnrecognized,
		TxID:        tx.ID,
		BlockHeight: tx.BlockHeight,
		Confirmed:   tx.Confirmed,
		BlockTime:   tx.BlockTime,
		Author:      tx.Sender,
		Metadata:    metadataFrom(set),
	}

	if v, ok := set.Get("postid"); ok {
		rec.PostID = v
	}
	if v, ok := set.Get("content"); ok && v != "" {
		rec.Content = v
	} else {
		rec.Content = set.FreeText
	}
	if v, ok := set.Get("tags"); ok {
		rec.Tags = SplitTags(v)
	}
	rec.LockAmount = parseInt64(set, "lockamount")
	rec.LockDuration = uint32(parseInt64(set, "lockduration"))

	if media, err := extractMedia(items, set); err != nil {
		in.logger.Warn("embedded media dropped",
			"tx_id", tx.ID,
			"error", err)
	} else if media != nil {
		rec.Media = media
		// Media-only posts still want a text body when the author shipped one
		if rec.Content == "" {
			if alt, ok := set.Get("alt"); ok {
				rec.Content = strings.TrimSpace(alt)
			}
		}
	}

	switch {
	case isVotePost(set):
		rec.Kind = KindVote
		rec.Vote = parseVote(set)
		if rec.Vote != nil && rec.Content == "" {
			rec.Content = rec.Vote.Question
		}
	case isLockEvent(set, rec):
		rec.Kind = KindLock
	case rec.Content != "" || rec.Media != nil:
		rec.Kind = KindContent
	}

	// Posts without an explicit id are addressed by their transaction
	if rec.PostID == "" && rec.Kind != KindLock {
		rec.PostID = tx.ID
	}

	if !rec.Valid() {
		in.logger.Debug("marker present but no usable record",
			"tx_id", tx.ID,
			"kind", string(rec.Kind))
		rec.Kind = KindUnrecognized
	}
	return rec
}

// isVotePost detects the vote shape: any vote-specific key, or an explicit
// type declaration.
func isVotePost(set *TokenSet) bool {
	if set.Has("votequestion") || set.Has("totaloptions") || set.Has("optionshash") {
		return true
	}
	if truthy(set, "isvote") {
		return true
	}
	if ct, _ := set.Get("contenttype"); strings.EqualFold(ct, "vote") {
		return true
	}
	typ, _ := set.Get("type")
	switch strings.ToLower(typ) {
	case "vote", "vote_question", "poll":
		return true
	}
	return false
}

// isLockEvent detects a value pledge against an existing post: a lock
// declaration referencing another post, with no content of its own.
func isLockEvent(set *TokenSet, rec *Record) bool {
	typ, _ := set.Get("type")
	action, _ := set.Get("action")
	declared := strings.ToLower(typ) == "lock" || strings.ToLower(action) == "lock" ||
		strings.ToLower(action) == "like" || truthy(set, "islocked")
	if !declared {
		return false
	}
	return rec.PostID != "" && rec.Content == "" && rec.Media == nil
}

func truthy(set *TokenSet, key string) bool {
	v, ok := set.Get(key)
	if !ok {
		return false
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func parseInt64(set *TokenSet, key string) int64 {
	v, ok := set.Get(key)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// metadataFrom copies every token into the record's metadata map. First
// occurrence wins on duplicate keys, matching Get. Legacy key@value pairs
// keep a second entry under "key@" so the original spelling stays auditable
// after normalization.
func metadataFrom(set *TokenSet) map[string]string {
	if len(set.Tokens) == 0 {
		return nil
	}
	meta := make(map[string]string, len(set.Tokens))
	for _, t := range set.Tokens {
		if t.Legacy {
			if _, dup := meta[t.Key+"@"]; !dup {
				meta[t.Key+"@"] = t.Value
			}
		}
		if _, dup := meta[t.Key]; dup {
			continue
		}
		meta[t.Key] = t.Value
	}
	return meta
}
