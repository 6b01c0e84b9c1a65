package lockproto

import (
	"bytes"
	"encoding/hex"
	"unicode/utf8"
)

// ItemClass is the decoded classification of one data item
type ItemClass int

// Item classes
const (
	// ClassText is valid, printable text
	ClassText ItemClass = iota
	// ClassHexBinary is undecodable bytes re-emitted as a hex string
	ClassHexBinary
	// ClassBinary is raw binary matching a known media signature
	ClassBinary
)

// String returns the string representation of ItemClass
func (c ItemClass) String() string {
	switch c {
	case ClassText:
		return "text"
	case ClassHexBinary:
		return "hex_binary"
	case ClassBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Item is one classified data item, scoped to parsing a single transaction
type Item struct {
	Class ItemClass
	// Text holds the decoded text for ClassText, or the 0x-prefixed hex
	// rendering for ClassHexBinary
	Text string
	// Bytes holds the original payload
	Bytes []byte
	// Format is the matched media format for ClassBinary items
	Format *MediaFormat
}

// MediaFormat describes a recognized embedded media format
type MediaFormat struct {
	Name        string
	ContentType string
	// MaxSize is the per-format payload ceiling; oversize payloads produce
	// a warning and are dropped, never a hard error
	MaxSize int

	signature []byte
	// sigOffset2 / signature2 cover formats with a split signature (WebP's
	// RIFF....WEBP)
	sigOffset2 int
	signature2 []byte
}

// Match reports whether data begins with this format's signature
func (f *MediaFormat) Match(data []byte) bool {
	if len(data) < len(f.signature) {
		return false
	}
	if !bytes.HasPrefix(data, f.signature) {
		return false
	}
	if f.signature2 == nil {
		return true
	}
	end := f.sigOffset2 + len(f.signature2)
	return len(data) >= end && bytes.Equal(data[f.sigOffset2:end], f.signature2)
}

// mediaFormats is the fixed signature table, checked before any text
// decoding so binary payloads are never misread as malformed text.
var mediaFormats = []*MediaFormat{
	{
		Name:        "jpeg",
		ContentType: "image/jpeg",
		MaxSize:     2 << 20,
		signature:   []byte{0xff, 0xd8, 0xff},
	},
	{
		Name:        "png",
		ContentType: "image/png",
		MaxSize:     2 << 20,
		signature:   []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a},
	},
	{
		Name:        "gif",
		ContentType: "image/gif",
		MaxSize:     1 << 20,
		signature:   []byte("GIF8"),
	},
	{
		Name:        "webp",
		ContentType: "image/webp",
		MaxSize:     2 << 20,
		signature:   []byte("RIFF"),
		sigOffset2:  8,
		signature2:  []byte("WEBP"),
	},
	{
		Name:        "bmp",
		ContentType: "image/bmp",
		MaxSize:     1 << 20,
		signature:   []byte("BM"),
	},
}

// matchMediaFormat returns the format whose signature matches the leading
// bytes, or nil.
func matchMediaFormat(data []byte) *MediaFormat {
	for _, f := range mediaFormats {
		if f.Match(data) {
			return f
		}
	}
	return nil
}

// ClassifyItem determines whether a data item is structured binary (known
// media signature), plain text, or hex-binary. Signature matching runs
// first: a payload beginning with an image header is binary even if its
// remaining bytes happen to decode as text.
func ClassifyItem(data []byte) Item {
	if f := matchMediaFormat(data); f != nil {
		return Item{Class: ClassBinary, Bytes: data, Format: f}
	}

	if isCleanText(data) {
		return Item{Class: ClassText, Text: string(data), Bytes: data}
	}

	return Item{
		Class: ClassHexBinary,
		Text:  "0x" + hex.EncodeToString(data),
		Bytes: data,
	}
}

// ClassifyItems classifies a transaction's data items in order
func ClassifyItems(raw [][]byte) []Item {
	items := make([]Item, 0, len(raw))
	for _, b := range raw {
		items = append(items, ClassifyItem(b))
	}
	return items
}

// isCleanText reports whether data decodes as UTF-8 without replacement
// characters and without control bytes outside tab, CR and LF.
func isCleanText(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return false
		}
		if r < 0x20 && r != '\t' && r != '\r' && r != '\n' {
			return false
		}
		if r == 0x7f {
			return false
		}
		i += size
	}
	return true
}
