package lockproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textItems(texts ...string) []Item {
	items := make([]Item, 0, len(texts))
	for _, s := range texts {
		items = append(items, Item{Class: ClassText, Text: s, Bytes: []byte(s)})
	}
	return items
}

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"lock_amount":   "lockamount",
		"Lock_Amount":   "lockamount",
		"LOCKAMOUNT":    "lockamount",
		"content_type":  "contenttype",
		"contentType":   "contenttype",
		"post_id":       "postid",
		"total_options": "totaloptions",
		"options_hash":  "optionshash",
		"option_index":  "optionindex",
		"vote_question": "votequestion",
		"content":       "content",
		" tags ":        "tags",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeKey(in), "key %q", in)
	}
}

func TestExtractTokensBasicPairs(t *testing.T) {
	set := ExtractTokens(textItems(
		"app=lockd.app",
		"postid=p-1",
		"lock_amount=100",
	), DefaultMarker)

	assert.True(t, set.Marker)
	v, ok := set.Get("postid")
	require.True(t, ok)
	assert.Equal(t, "p-1", v)
	v, ok = set.Get("lockamount")
	require.True(t, ok)
	assert.Equal(t, "100", v)
}

func TestExtractTokensBareMarker(t *testing.T) {
	set := ExtractTokens(textItems("lockd.app", "content=hi"), DefaultMarker)
	assert.True(t, set.Marker)
	// The bare marker never becomes free text
	assert.Empty(t, set.FreeText)
}

func TestExtractTokensMarkerIsExact(t *testing.T) {
	set := ExtractTokens(textItems("lockd.app.fake", "see lockd.app for details"), DefaultMarker)
	assert.False(t, set.Marker)
}

func TestExtractTokensWrongAppValue(t *testing.T) {
	set := ExtractTokens(textItems("app=other.app"), DefaultMarker)
	assert.False(t, set.Marker)
}

func TestExtractTokensLegacyAtForm(t *testing.T) {
	set := ExtractTokens(textItems("lockamount@500"), DefaultMarker)
	require.Len(t, set.Tokens, 1)
	assert.True(t, set.Tokens[0].Legacy)
	assert.Equal(t, "lockamount", set.Tokens[0].Key)
	assert.Equal(t, "500", set.Tokens[0].Value)
}

func TestExtractTokensEqualsWinsOverAt(t *testing.T) {
	set := ExtractTokens(textItems("note=reach me @home"), DefaultMarker)
	require.Len(t, set.Tokens, 1)
	assert.Equal(t, "note", set.Tokens[0].Key)
	assert.Equal(t, "reach me @home", set.Tokens[0].Value)
	assert.False(t, set.Tokens[0].Legacy)
}

func TestExtractTokensFreeText(t *testing.T) {
	set := ExtractTokens(textItems(
		"lockd.app",
		"short",
		"this is the longest free item and wins",
		"postid=p-1",
	), DefaultMarker)

	assert.Equal(t, "this is the longest free item and wins", set.FreeText)
}

func TestExtractTokensFreeTextRejectsStructure(t *testing.T) {
	set := ExtractTokens(textItems(
		"lockd.app",
		`{"content":"serialized structure that is quite long indeed"}`,
		"actual body",
	), DefaultMarker)

	assert.Equal(t, "actual body", set.FreeText)
}

func TestExtractTokensSentenceWithEqualsStaysFree(t *testing.T) {
	// A key with spaces is not a plausible token key
	set := ExtractTokens(textItems("the answer = 42 obviously"), DefaultMarker)
	assert.Empty(t, set.Tokens)
	assert.Equal(t, "the answer = 42 obviously", set.FreeText)
}

func TestTokenSetValues(t *testing.T) {
	set := ExtractTokens(textItems("option=A", "option=B", "option=C"), DefaultMarker)
	assert.Equal(t, []string{"A", "B", "C"}, set.Values("option"))
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"go", "chain", "posts"}, SplitTags("go,chain;posts"))
	assert.Equal(t, []string{"a", "b"}, SplitTags("a|b|a"))
	assert.Equal(t, []string{"One"}, SplitTags(" One , one ,ONE"))
	assert.Nil(t, SplitTags(" , ; "))
}
