package chain

import (
	"encoding/binary"
	"fmt"

	"github.com/nedzof/lockd.app-sub000/errors"
)

// wireReader is a cursor over raw transaction bytes
type wireReader struct {
	buf []byte
	pos int
}

func (r *wireReader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *wireReader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("need %d bytes, have %d", n, r.remaining())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *wireReader) skip(n int) error {
	_, err := r.readBytes(n)
	return err
}

func (r *wireReader) readUint32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// readVarInt reads a Bitcoin-style compact size integer
func (r *wireReader) readVarInt() (uint64, error) {
	b, err := r.readBytes(1)
	if err != nil {
		return 0, err
	}
	switch b[0] {
	case 0xfd:
		v, err := r.readBytes(2)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(v)), nil
	case 0xfe:
		v, err := r.readBytes(4)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(v)), nil
	case 0xff:
		v, err := r.readBytes(8)
		if err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(v), nil
	default:
		return uint64(b[0]), nil
	}
}

// maxReasonableCount guards varint counts so a corrupt length prefix cannot
// drive a huge allocation
const maxReasonableCount = 100_000

// decodeOutputScripts deserializes a raw transaction and returns its output
// scripts in on-chain order.
func decodeOutputScripts(raw []byte) ([][]byte, error) {
	r := &wireReader{buf: raw}

	if _, err := r.readUint32(); err != nil { // version
		return nil, errors.WrapInvalid(err, "chain", "decodeOutputScripts", "read version")
	}

	inCount, err := r.readVarInt()
	if err != nil {
		return nil, errors.WrapInvalid(err, "chain", "decodeOutputScripts", "read input count")
	}
	if inCount > maxReasonableCount {
		return nil, errors.WrapInvalid(
			fmt.Errorf("input count %d implausible", inCount),
			"chain", "decodeOutputScripts", "validate input count")
	}

	for i := uint64(0); i < inCount; i++ {
		if err := r.skip(36); err != nil { // previous outpoint: txid + vout
			return nil, errors.WrapInvalid(err, "chain", "decodeOutputScripts", "skip outpoint")
		}
		scriptLen, err := r.readVarInt()
		if err != nil {
			return nil, errors.WrapInvalid(err, "chain", "decodeOutputScripts", "read input script length")
		}
		if err := r.skip(int(scriptLen)); err != nil {
			return nil, errors.WrapInvalid(err, "chain", "decodeOutputScripts", "skip input script")
		}
		if err := r.skip(4); err != nil { // sequence
			return nil, errors.WrapInvalid(err, "chain", "decodeOutputScripts", "skip sequence")
		}
	}

	outCount, err := r.readVarInt()
	if err != nil {
		return nil, errors.WrapInvalid(err, "chain", "decodeOutputScripts", "read output count")
	}
	if outCount > maxReasonableCount {
		return nil, errors.WrapInvalid(
			fmt.Errorf("output count %d implausible", outCount),
			"chain", "decodeOutputScripts", "validate output count")
	}

	scripts := make([][]byte, 0, outCount)
	for i := uint64(0); i < outCount; i++ {
		if err := r.skip(8); err != nil { // satoshi value
			return nil, errors.WrapInvalid(err, "chain", "decodeOutputScripts", "skip output value")
		}
		scriptLen, err := r.readVarInt()
		if err != nil {
			return nil, errors.WrapInvalid(err, "chain", "decodeOutputScripts", "read output script length")
		}
		script, err := r.readBytes(int(scriptLen))
		if err != nil {
			return nil, errors.WrapInvalid(err, "chain", "decodeOutputScripts", "read output script")
		}
		out := make([]byte, len(script))
		copy(out, script)
		scripts = append(scripts, out)
	}

	return scripts, nil
}
