package lockproto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyItemText(t *testing.T) {
	item := ClassifyItem([]byte("content=hello world"))
	assert.Equal(t, ClassText, item.Class)
	assert.Equal(t, "content=hello world", item.Text)
}

func TestClassifyItemMultibyteText(t *testing.T) {
	item := ClassifyItem([]byte("content=héllo 世界"))
	assert.Equal(t, ClassText, item.Class)
}

func TestClassifyItemAllowsWhitespaceControls(t *testing.T) {
	item := ClassifyItem([]byte("line one\nline two\ttabbed\r\n"))
	assert.Equal(t, ClassText, item.Class)
}

func TestClassifyItemRejectsControlBytes(t *testing.T) {
	item := ClassifyItem([]byte{'a', 0x00, 'b'})
	assert.Equal(t, ClassHexBinary, item.Class)
	assert.Equal(t, "0x610062", item.Text)
}

func TestClassifyItemInvalidUTF8(t *testing.T) {
	item := ClassifyItem([]byte{0xc3, 0x28})
	assert.Equal(t, ClassHexBinary, item.Class)
	assert.Equal(t, "0xc328", item.Text)
}

func TestClassifyItemSignatureBeatsText(t *testing.T) {
	// GIF87a is itself clean ASCII, but the signature wins
	payload := append([]byte("GIF87a"), []byte("trailing ascii body")...)
	item := ClassifyItem(payload)
	require.Equal(t, ClassBinary, item.Class)
	assert.Equal(t, "image/gif", item.Format.ContentType)
}

func TestClassifyItemJPEG(t *testing.T) {
	item := ClassifyItem([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10})
	require.Equal(t, ClassBinary, item.Class)
	assert.Equal(t, "image/jpeg", item.Format.ContentType)
}

func TestClassifyItemPNG(t *testing.T) {
	sig := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	item := ClassifyItem(append(sig, 0x00, 0x00))
	require.Equal(t, ClassBinary, item.Class)
	assert.Equal(t, "image/png", item.Format.ContentType)
}

func TestClassifyItemWebPNeedsBothParts(t *testing.T) {
	// RIFF alone is not WebP
	riffOnly := append([]byte("RIFF"), bytes.Repeat([]byte{0x01}, 8)...)
	item := ClassifyItem(riffOnly)
	assert.NotEqual(t, ClassBinary, item.Class)

	webp := append([]byte("RIFF"), 0x24, 0x00, 0x00, 0x00)
	webp = append(webp, []byte("WEBP")...)
	item = ClassifyItem(webp)
	require.Equal(t, ClassBinary, item.Class)
	assert.Equal(t, "image/webp", item.Format.ContentType)
}

func TestClassifyItemsPreservesOrder(t *testing.T) {
	items := ClassifyItems([][]byte{
		[]byte("lockd.app"),
		{0x00, 0x01},
		[]byte("content=x"),
	})
	require.Len(t, items, 3)
	assert.Equal(t, ClassText, items[0].Class)
	assert.Equal(t, ClassHexBinary, items[1].Class)
	assert.Equal(t, ClassText, items[2].Class)
}
