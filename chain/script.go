package chain

import "bytes"

// Script opcodes relevant to null-data outputs
const (
	opFalse     = 0x00
	opReturn    = 0x6a
	opPushData1 = 0x4c
	opPushData2 = 0x4d
	opPushData4 = 0x4e
)

// dataCarrierPrefix is the provably-unspendable OP_FALSE OP_RETURN prefix
var dataCarrierPrefix = []byte{opFalse, opReturn}

// isDataCarrier reports whether a script is a null-data output: a bare
// OP_RETURN or the post-genesis OP_FALSE OP_RETURN form.
func isDataCarrier(script []byte) bool {
	if len(script) == 0 {
		return false
	}
	if script[0] == opReturn {
		return true
	}
	return len(script) >= 2 && script[0] == opFalse && script[1] == opReturn
}

// carrierPayload returns the script bytes following the data-carrier marker
func carrierPayload(script []byte) []byte {
	if script[0] == opReturn {
		return script[1:]
	}
	return script[2:]
}

// parsePushes walks script bytes after the marker and returns every pushed
// chunk in order. Direct pushes (1-75 bytes) and OP_PUSHDATA1/2/4 are
// honored; parsing stops quietly at the first malformed or non-push opcode,
// keeping whatever was extracted so far. Wallets routinely pad null-data
// outputs with junk tails, so a hard error here would discard good payloads.
func parsePushes(script []byte) [][]byte {
	var items [][]byte
	i := 0
	for i < len(script) {
		op := script[i]
		i++

		var size int
		switch {
		case op >= 1 && op <= 75:
			size = int(op)
		case op == opPushData1:
			if i+1 > len(script) {
				return items
			}
			size = int(script[i])
			i++
		case op == opPushData2:
			if i+2 > len(script) {
				return items
			}
			size = int(script[i]) | int(script[i+1])<<8
			i += 2
		case op == opPushData4:
			if i+4 > len(script) {
				return items
			}
			size = int(script[i]) | int(script[i+1])<<8 | int(script[i+2])<<16 | int(script[i+3])<<24
			i += 4
		case op == opFalse:
			// OP_0 pushes an empty item; nothing to collect
			continue
		default:
			return items
		}

		if size < 0 || i+size > len(script) {
			return items
		}
		item := make([]byte, size)
		copy(item, script[i:i+size])
		items = append(items, item)
		i += size
	}
	return items
}

// scanForCarrier finds the earliest OP_FALSE OP_RETURN pattern in raw bytes
// and parses pushes from just after it. Last-resort recovery for
// transactions whose wire decoding failed.
func scanForCarrier(raw []byte) [][]byte {
	idx := bytes.Index(raw, dataCarrierPrefix)
	if idx < 0 {
		return nil
	}
	return parsePushes(raw[idx+len(dataCarrierPrefix):])
}
