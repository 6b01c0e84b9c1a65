package chain

import (
	"encoding/json"
	"time"
)

// TxEnvelope is the bus representation of an observed transaction, published
// by the feed input and consumed by the ingest processor.
type TxEnvelope struct {
	TxID          string    `json:"tx_id"`
	BlockHeight   uint32    `json:"block_height,omitempty"`
	Confirmed     bool      `json:"confirmed"`
	BlockTime     time.Time `json:"block_time"`
	Sender        string    `json:"sender,omitempty"`
	Raw           []byte    `json:"raw,omitempty"`
	OutputScripts [][]byte  `json:"output_scripts,omitempty"`
	ReceivedAt    time.Time `json:"received_at"`
}

// NewEnvelope wraps a transaction for publishing
func NewEnvelope(tx *Tx) *TxEnvelope {
	return &TxEnvelope{
		TxID:          tx.ID,
		BlockHeight:   tx.BlockHeight,
		Confirmed:     tx.Confirmed,
		BlockTime:     tx.BlockTime,
		Sender:        tx.Sender,
		Raw:           tx.Raw,
		OutputScripts: tx.OutputScripts,
		ReceivedAt:    time.Now().UTC(),
	}
}

// Tx rebuilds the transaction on the consuming side
func (e *TxEnvelope) Tx() *Tx {
	return &Tx{
		ID:            e.TxID,
		BlockHeight:   e.BlockHeight,
		Confirmed:     e.Confirmed,
		BlockTime:     e.BlockTime,
		Sender:        e.Sender,
		Raw:           e.Raw,
		OutputScripts: e.OutputScripts,
	}
}

// Encode serializes the envelope for the bus
func (e *TxEnvelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses a bus message back into an envelope
func DecodeEnvelope(data []byte) (*TxEnvelope, error) {
	var e TxEnvelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
