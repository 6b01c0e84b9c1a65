package feed

import (
	"encoding/json"
	"time"

	"github.com/nedzof/lockd.app-sub000/chain"
)

// State is the observable connection state of the feed input
type State int32

// Feed states
const (
	StateIdle State = iota
	StateConnecting
	StateSubscribed
	StateWaiting
	StateProcessing
	StateDisconnected
	StateStopped
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateWaiting:
		return "waiting"
	case StateProcessing:
		return "processing"
	case StateDisconnected:
		return "disconnected"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// subscribeFrame is the first frame the client sends after connecting
type subscribeFrame struct {
	Action     string `json:"action"`
	FromHeight uint32 `json:"from_height"`
	Token      string `json:"token,omitempty"`
}

// Frame types delivered by the provider
const (
	frameTransaction = "transaction"
	frameStatus      = "status"
	frameError       = "error"
)

// Status codes carried by status frames
const (
	statusBlockDone = "block_done"
	statusWaiting   = "waiting"
	statusReorg     = "reorg"
	statusError     = "error"
)

// feedFrame is one provider message
type feedFrame struct {
	Type        string       `json:"type"`
	Transaction *txFrame     `json:"transaction,omitempty"`
	Status      *statusFrame `json:"status,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// txFrame is the provider's transaction payload
type txFrame struct {
	ID            string   `json:"id"`
	BlockHeight   uint32   `json:"block_height,omitempty"`
	BlockTime     int64    `json:"block_time,omitempty"` // unix seconds
	Confirmed     bool     `json:"confirmed"`
	Sender        string   `json:"sender,omitempty"`
	Raw           []byte   `json:"raw,omitempty"`
	OutputScripts [][]byte `json:"output_scripts,omitempty"`
}

// statusFrame carries provider progress signals
type statusFrame struct {
	Code    string `json:"code"`
	Block   uint32 `json:"block,omitempty"`
	Message string `json:"message,omitempty"`
}

// parseFrame decodes one WebSocket message
func parseFrame(data []byte) (*feedFrame, error) {
	var frame feedFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, err
	}
	return &frame, nil
}

// encodeTx wraps a transaction in its bus envelope
func encodeTx(tx *chain.Tx) ([]byte, error) {
	return chain.NewEnvelope(tx).Encode()
}

// tx converts the frame into the canonical transaction shape
func (f *txFrame) tx() *chain.Tx {
	var blockTime time.Time
	if f.BlockTime > 0 {
		blockTime = time.Unix(f.BlockTime, 0).UTC()
	}
	return &chain.Tx{
		ID:            f.ID,
		BlockHeight:   f.BlockHeight,
		Confirmed:     f.Confirmed,
		BlockTime:     blockTime,
		Sender:        f.Sender,
		Raw:           f.Raw,
		OutputScripts: f.OutputScripts,
	}
}
