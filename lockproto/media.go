package lockproto

import (
	"encoding/binary"
	"fmt"

	lockderrors "github.com/nedzof/lockd.app-sub000/errors"
)

// signatureScanWindow bounds how deep into an item we look for a media
// signature. Real embeds put the header first or behind a short envelope;
// scanning further only invites false positives.
const signatureScanWindow = 1024

// extractMedia finds the first embedded media payload among the transaction's
// items. Binary-classified items match at offset zero; for other non-text
// items the leading window is scanned, so media survives a short prefix such
// as a length header or stray padding.
//
// A nil, nil return means the transaction simply carries no media. An error
// means media was found but rejected, which the caller reports and drops
// without failing the transaction.
func extractMedia(items []Item, set *TokenSet) (*Media, error) {
	for _, item := range items {
		var payload []byte
		var format *MediaFormat

		switch item.Class {
		case ClassBinary:
			payload, format = item.Bytes, item.Format
		case ClassHexBinary:
			payload, format = scanForSignature(item.Bytes)
		default:
			continue
		}
		if format == nil {
			continue
		}

		if len(payload) > format.MaxSize {
			return nil, lockderrors.WrapInvalid(
				fmt.Errorf("%w: %s payload is %d bytes, limit %d",
					lockderrors.ErrMediaTooLarge, format.Name, len(payload), format.MaxSize),
				"lockproto", "extractMedia", "size check")
		}

		media := &Media{
			Bytes:       payload,
			ContentType: format.ContentType,
			Size:        len(payload),
		}
		if name, ok := set.Get("filename"); ok {
			media.Filename = name
		}
		media.Width, media.Height = imageDimensions(format, payload)
		return media, nil
	}

	return nil, nil
}

// scanForSignature looks for the earliest media signature inside the leading
// window and returns the payload from that point on.
func scanForSignature(data []byte) ([]byte, *MediaFormat) {
	limit := len(data)
	if limit > signatureScanWindow {
		limit = signatureScanWindow
	}
	for off := 0; off < limit; off++ {
		if f := matchMediaFormat(data[off:]); f != nil {
			return data[off:], f
		}
	}
	return nil, nil
}

// imageDimensions reads pixel dimensions from the payload header. Best
// effort: zero values mean the header did not yield dimensions.
func imageDimensions(format *MediaFormat, payload []byte) (int, int) {
	switch format.Name {
	case "png":
		// IHDR directly follows the 8-byte signature and 8-byte chunk header
		if len(payload) >= 24 {
			w := binary.BigEndian.Uint32(payload[16:20])
			h := binary.BigEndian.Uint32(payload[20:24])
			return int(w), int(h)
		}
	case "gif":
		if len(payload) >= 10 {
			w := binary.LittleEndian.Uint16(payload[6:8])
			h := binary.LittleEndian.Uint16(payload[8:10])
			return int(w), int(h)
		}
	case "bmp":
		if len(payload) >= 26 {
			w := int32(binary.LittleEndian.Uint32(payload[18:22]))
			h := int32(binary.LittleEndian.Uint32(payload[22:26]))
			if h < 0 {
				h = -h // top-down bitmaps store negative height
			}
			if w > 0 {
				return int(w), int(h)
			}
		}
	case "jpeg":
		return jpegDimensions(payload)
	}
	return 0, 0
}

// jpegDimensions walks JPEG segments to the first frame header (SOF). The
// frame stores height before width.
func jpegDimensions(payload []byte) (int, int) {
	i := 2 // past FF D8
	for i+8 < len(payload) {
		if payload[i] != 0xff {
			return 0, 0
		}
		marker := payload[i+1]
		if marker == 0xff {
			i++
			continue
		}
		// Standalone markers carry no length
		if marker == 0xd8 || (marker >= 0xd0 && marker <= 0xd7) {
			i += 2
			continue
		}
		segLen := int(binary.BigEndian.Uint16(payload[i+2 : i+4]))
		if segLen < 2 {
			return 0, 0
		}
		if isSOFMarker(marker) {
			if i+9 <= len(payload) {
				h := binary.BigEndian.Uint16(payload[i+5 : i+7])
				w := binary.BigEndian.Uint16(payload[i+7 : i+9])
				return int(w), int(h)
			}
			return 0, 0
		}
		i += 2 + segLen
	}
	return 0, 0
}

func isSOFMarker(m byte) bool {
	if m < 0xc0 || m > 0xcf {
		return false
	}
	// C4 (huffman), C8 (extension) and CC (arithmetic conditioning) are not
	// frame headers
	return m != 0xc4 && m != 0xc8 && m != 0xcc
}
