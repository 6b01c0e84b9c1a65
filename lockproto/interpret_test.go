package lockproto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nedzof/lockd.app-sub000/chain"
)

func itemsOf(texts ...string) [][]byte {
	raw := make([][]byte, 0, len(texts))
	for _, s := range texts {
		raw = append(raw, []byte(s))
	}
	return raw
}

func testTx() *chain.Tx {
	return &chain.Tx{
		ID:          "abc123",
		BlockHeight: 811123,
		Confirmed:   true,
		BlockTime:   time.Unix(1700000000, 0),
		Sender:      "1SenderAddr",
	}
}

func TestInterpretContentPost(t *testing.T) {
	in := NewInterpreter("", nil)
	rec := in.Interpret(testTx(), itemsOf(
		"app=lockd.app",
		"postid=p-42",
		"content=hello from the chain",
		"lockamount=100",
		"lockduration=10",
		"tags=go,infra",
	))

	require.NotNil(t, rec)
	assert.Equal(t, KindContent, rec.Kind)
	assert.Equal(t, "abc123", rec.TxID)
	assert.Equal(t, uint32(811123), rec.BlockHeight)
	assert.True(t, rec.Confirmed)
	assert.Equal(t, "1SenderAddr", rec.Author)
	assert.Equal(t, "p-42", rec.PostID)
	assert.Equal(t, "hello from the chain", rec.Content)
	assert.Equal(t, int64(100), rec.LockAmount)
	assert.Equal(t, uint32(10), rec.LockDuration)
	assert.Equal(t, []string{"go", "infra"}, rec.Tags)
	assert.Equal(t, "100", rec.Metadata["lockamount"])
}

func TestInterpretFreeTextContent(t *testing.T) {
	in := NewInterpreter("", nil)
	rec := in.Interpret(testTx(), itemsOf(
		"lockd.app",
		"just a plain post body",
	))

	require.NotNil(t, rec)
	assert.Equal(t, KindContent, rec.Kind)
	assert.Equal(t, "just a plain post body", rec.Content)
	// No explicit postid: addressed by transaction
	assert.Equal(t, "abc123", rec.PostID)
}

func TestInterpretNoMarkerReturnsNil(t *testing.T) {
	in := NewInterpreter("", nil)
	rec := in.Interpret(testTx(), itemsOf(
		"postid=p-1",
		"content=looks protocol shaped but has no marker",
	))
	assert.Nil(t, rec)
}

func TestInterpretVotePost(t *testing.T) {
	in := NewInterpreter("", nil)
	rec := in.Interpret(testTx(), itemsOf(
		"app=lockd.app",
		"type=vote_question",
		"vote_question=Favorite color?",
		"total_options=2",
		"option=OptA",
		"option=OptB",
	))

	require.NotNil(t, rec)
	require.Equal(t, KindVote, rec.Kind)
	require.NotNil(t, rec.Vote)
	assert.Equal(t, "Favorite color?", rec.Vote.Question)
	assert.Equal(t, []string{"OptA", "OptB"}, rec.Vote.Options)
	assert.Equal(t, 2, rec.Vote.DeclaredOptionCount)
	// Question doubles as content when no body is present
	assert.Equal(t, "Favorite color?", rec.Content)
}

func TestInterpretVoteContentEncoding(t *testing.T) {
	in := NewInterpreter("", nil)
	rec := in.Interpret(testTx(), itemsOf(
		"app=lockd.app",
		"type=vote_question",
		"content=Q",
		"totaloptions=2",
		"content=OptA",
		"content=OptB",
	))

	require.NotNil(t, rec)
	require.Equal(t, KindVote, rec.Kind)
	require.NotNil(t, rec.Vote)
	assert.Equal(t, "Q", rec.Vote.Question)
	assert.Equal(t, []string{"OptA", "OptB"}, rec.Vote.Options)
	assert.Equal(t, "Q", rec.Content)
}

func TestInterpretContentTypeVote(t *testing.T) {
	in := NewInterpreter("", nil)
	rec := in.Interpret(testTx(), itemsOf(
		"app=lockd.app",
		"content_type=vote",
		"content=Best editor?",
	))

	require.NotNil(t, rec)
	require.Equal(t, KindVote, rec.Kind)
	require.NotNil(t, rec.Vote)
	assert.Equal(t, "Best editor?", rec.Vote.Question)
}

func TestInterpretAltTextFillsContent(t *testing.T) {
	in := NewInterpreter("", nil)
	rec := in.Interpret(testTx(), [][]byte{
		[]byte("lockd.app"),
		[]byte("alt=a red square"),
		pngPayload(2, 2),
	})

	require.NotNil(t, rec)
	assert.Equal(t, KindContent, rec.Kind)
	require.NotNil(t, rec.Media)
	assert.Equal(t, "a red square", rec.Content)
}

func TestInterpretLegacyTokenKeptInMetadata(t *testing.T) {
	in := NewInterpreter("", nil)
	rec := in.Interpret(testTx(), itemsOf(
		"lockd.app",
		"lock_amount@100",
		"content=x",
	))

	require.NotNil(t, rec)
	assert.Equal(t, int64(100), rec.LockAmount)
	assert.Equal(t, "100", rec.Metadata["lockamount"])
	assert.Equal(t, "100", rec.Metadata["lockamount@"])
}

func TestInterpretLockEvent(t *testing.T) {
	in := NewInterpreter("", nil)
	rec := in.Interpret(testTx(), itemsOf(
		"app=lockd.app",
		"action=lock",
		"postid=p-7",
		"lockamount=5000",
		"lockduration=144",
	))

	require.NotNil(t, rec)
	assert.Equal(t, KindLock, rec.Kind)
	assert.Equal(t, "p-7", rec.PostID)
	assert.Equal(t, int64(5000), rec.LockAmount)
	assert.True(t, rec.Valid())
}

func TestInterpretLockWithContentIsPost(t *testing.T) {
	in := NewInterpreter("", nil)
	rec := in.Interpret(testTx(), itemsOf(
		"app=lockd.app",
		"action=lock",
		"postid=p-7",
		"content=locking with commentary",
	))

	require.NotNil(t, rec)
	assert.Equal(t, KindContent, rec.Kind)
}

func TestInterpretMarkerOnlyIsUnrecognized(t *testing.T) {
	in := NewInterpreter("", nil)
	rec := in.Interpret(testTx(), itemsOf("lockd.app"))
	require.NotNil(t, rec)
	assert.Equal(t, KindUnrecognized, rec.Kind)
	assert.False(t, rec.Valid())
}

func TestInterpretMalformedBinaryBecomesMetadataSafe(t *testing.T) {
	in := NewInterpreter("", nil)
	rec := in.Interpret(testTx(), [][]byte{
		[]byte("lockd.app"),
		[]byte("content=ok"),
		{0x00, 0xff, 0xfe}, // undecodable, no media signature
	})

	require.NotNil(t, rec)
	assert.Equal(t, KindContent, rec.Kind)
	assert.Nil(t, rec.Media)
}

func TestInterpretCustomMarker(t *testing.T) {
	in := NewInterpreter("other.app", nil)
	rec := in.Interpret(testTx(), itemsOf("other.app", "content=hi"))
	require.NotNil(t, rec)
	assert.Equal(t, KindContent, rec.Kind)

	assert.Nil(t, in.Interpret(testTx(), itemsOf("lockd.app", "content=hi")))
}

func TestInterpretNegativeAmountIgnored(t *testing.T) {
	in := NewInterpreter("", nil)
	rec := in.Interpret(testTx(), itemsOf(
		"lockd.app",
		"content=x",
		"lockamount=-5",
	))
	require.NotNil(t, rec)
	assert.Zero(t, rec.LockAmount)
}

func TestInterpretEmptyInput(t *testing.T) {
	in := NewInterpreter("", nil)
	assert.Nil(t, in.Interpret(nil, itemsOf("lockd.app")))
	assert.Nil(t, in.Interpret(testTx(), nil))
}
