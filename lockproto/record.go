package lockproto

import (
	"time"
)

// DefaultMarker is the protocol application marker identifying lockd.app
// transactions. A transaction without this marker is never interpreted,
// regardless of how protocol-shaped its payload looks.
const DefaultMarker = "lockd.app"

// Kind tags the canonical record union
type Kind string

// Record kinds
const (
	KindContent      Kind = "content_post"
	KindVote         Kind = "vote_post"
	KindLock         Kind = "lock_event"
	KindUnrecognized Kind = "unrecognized"
)

// Vote holds the vote-specific fields of a vote post
type Vote struct {
	// Question is the first content item following the vote-question marker
	Question string `json:"question"`
	// Options are the remaining content items in encounter order
	Options []string `json:"options"`
	// DeclaredOptionCount is the count stated by the transaction, stored as
	// provided and not verified against len(Options)
	DeclaredOptionCount int `json:"declared_option_count"`
	// OptionsHash is the declared options commitment, stored unverified
	OptionsHash string `json:"options_hash,omitempty"`
}

// Media holds an embedded media payload. Ownership transfers to the
// persistence gateway along with the record.
type Media struct {
	Bytes       []byte `json:"-"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Size        int    `json:"size"`
}

// Record is the canonical, persistence-ready representation of a parsed
// transaction.
type Record struct {
	Kind Kind `json:"kind"`

	// Transaction reference
	TxID        string    `json:"tx_id"`
	BlockHeight uint32    `json:"block_height,omitempty"`
	Confirmed   bool      `json:"confirmed"`
	BlockTime   time.Time `json:"block_time"`

	// Author is the best-effort sender address
	Author string `json:"author,omitempty"`

	// PostID references the post this record belongs to (its own id for
	// posts, the liked/locked post for lock events)
	PostID string `json:"post_id,omitempty"`

	// Content is the free-text body; may be empty for media-only posts
	Content string `json:"content,omitempty"`

	// Tags is the deduplicated tag set in encounter order
	Tags []string `json:"tags,omitempty"`

	// Metadata carries every normalized protocol key=value pair
	Metadata map[string]string `json:"metadata,omitempty"`

	// LockAmount is the pledged value in the smallest unit (satoshis)
	LockAmount int64 `json:"lock_amount,omitempty"`
	// LockDuration is the pledge period in blocks
	LockDuration uint32 `json:"lock_duration,omitempty"`

	Vote  *Vote  `json:"vote,omitempty"`
	Media *Media `json:"media,omitempty"`
}

// Valid reports whether the record may reach persistence: it must carry
// content or media. Lock events reference value rather than content and are
// valid once classified.
func (r *Record) Valid() bool {
	if r == nil || r.Kind == KindUnrecognized {
		return false
	}
	if r.Kind == KindLock {
		return true
	}
	return r.Content != "" || r.Media != nil
}
