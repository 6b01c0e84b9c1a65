package lockproto

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lockderrors "github.com/nedzof/lockd.app-sub000/errors"
)

func pngPayload(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a})
	chunkLen := make([]byte, 4)
	binary.BigEndian.PutUint32(chunkLen, 13)
	buf.Write(chunkLen)
	buf.WriteString("IHDR")
	dim := make([]byte, 4)
	binary.BigEndian.PutUint32(dim, width)
	buf.Write(dim)
	binary.BigEndian.PutUint32(dim, height)
	buf.Write(dim)
	buf.Write(make([]byte, 5)) // bit depth, color type, etc.
	return buf.Bytes()
}

func gifPayload(width, height uint16) []byte {
	var buf bytes.Buffer
	buf.WriteString("GIF89a")
	dim := make([]byte, 2)
	binary.LittleEndian.PutUint16(dim, width)
	buf.Write(dim)
	binary.LittleEndian.PutUint16(dim, height)
	buf.Write(dim)
	buf.Write(make([]byte, 3))
	return buf.Bytes()
}

func TestExtractMediaPNG(t *testing.T) {
	items := ClassifyItems([][]byte{
		[]byte("lockd.app"),
		pngPayload(640, 480),
	})
	set := ExtractTokens(items, DefaultMarker)

	media, err := extractMedia(items, set)
	require.NoError(t, err)
	require.NotNil(t, media)
	assert.Equal(t, "image/png", media.ContentType)
	assert.Equal(t, 640, media.Width)
	assert.Equal(t, 480, media.Height)
	assert.Equal(t, len(pngPayload(640, 480)), media.Size)
}

func TestExtractMediaGIFDimensions(t *testing.T) {
	items := ClassifyItems([][]byte{gifPayload(320, 200)})
	media, err := extractMedia(items, &TokenSet{})
	require.NoError(t, err)
	require.NotNil(t, media)
	assert.Equal(t, "image/gif", media.ContentType)
	assert.Equal(t, 320, media.Width)
	assert.Equal(t, 200, media.Height)
}

func TestExtractMediaFilenameFromToken(t *testing.T) {
	items := ClassifyItems([][]byte{
		[]byte("filename=pic.png"),
		pngPayload(1, 1),
	})
	set := ExtractTokens(items, DefaultMarker)

	media, err := extractMedia(items, set)
	require.NoError(t, err)
	require.NotNil(t, media)
	assert.Equal(t, "pic.png", media.Filename)
}

func TestExtractMediaBehindPrefix(t *testing.T) {
	// Signature a few bytes in: the item classifies as hex binary but the
	// scan still finds the image.
	payload := append([]byte{0x00, 0x01, 0x02}, pngPayload(2, 2)...)
	items := ClassifyItems([][]byte{payload})
	require.Equal(t, ClassHexBinary, items[0].Class)

	media, err := extractMedia(items, &TokenSet{})
	require.NoError(t, err)
	require.NotNil(t, media)
	assert.Equal(t, "image/png", media.ContentType)
	assert.Equal(t, 2, media.Width)
}

func TestExtractMediaSignatureOutsideWindow(t *testing.T) {
	payload := append(bytes.Repeat([]byte{0x00}, signatureScanWindow+16), pngPayload(2, 2)...)
	items := ClassifyItems([][]byte{payload})

	media, err := extractMedia(items, &TokenSet{})
	require.NoError(t, err)
	assert.Nil(t, media)
}

func TestExtractMediaOversizeRejected(t *testing.T) {
	payload := append(gifPayload(1, 1), bytes.Repeat([]byte{0x2e}, 1<<20)...)
	items := ClassifyItems([][]byte{payload})

	media, err := extractMedia(items, &TokenSet{})
	require.Error(t, err)
	assert.Nil(t, media)
	assert.ErrorIs(t, err, lockderrors.ErrMediaTooLarge)
}

func TestExtractMediaNoMedia(t *testing.T) {
	items := ClassifyItems([][]byte{[]byte("content=just text")})
	media, err := extractMedia(items, &TokenSet{})
	require.NoError(t, err)
	assert.Nil(t, media)
}

func TestJPEGDimensions(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xd8})             // SOI
	buf.Write([]byte{0xff, 0xe0, 0x00, 0x04}) // APP0, length 4
	buf.Write([]byte{0x4a, 0x46})
	buf.Write([]byte{0xff, 0xc0, 0x00, 0x11}) // SOF0
	buf.WriteByte(8)                          // precision
	hw := make([]byte, 4)
	binary.BigEndian.PutUint16(hw[0:2], 480) // height first
	binary.BigEndian.PutUint16(hw[2:4], 640)
	buf.Write(hw)
	buf.Write(make([]byte, 10))

	w, h := jpegDimensions(buf.Bytes())
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
}

func TestJPEGDimensionsMalformed(t *testing.T) {
	w, h := jpegDimensions([]byte{0xff, 0xd8, 0x00, 0x01, 0x02})
	assert.Zero(t, w)
	assert.Zero(t, h)
}
