package lockproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVoteContentEncoding(t *testing.T) {
	set := ExtractTokens(textItems(
		"type=vote_question",
		"content=Q",
		"total_options=2",
		"content=OptA",
		"content=OptB",
	), DefaultMarker)

	vote := parseVote(set)
	require.NotNil(t, vote)
	assert.Equal(t, "Q", vote.Question)
	assert.Equal(t, []string{"OptA", "OptB"}, vote.Options)
	assert.Equal(t, 2, vote.DeclaredOptionCount)
}

func TestParseVoteContentEncodingCapsAtDeclaredCount(t *testing.T) {
	set := ExtractTokens(textItems(
		"content=Q",
		"total_options=1",
		"content=A",
		"content=B",
	), DefaultMarker)

	vote := parseVote(set)
	require.NotNil(t, vote)
	assert.Equal(t, "Q", vote.Question)
	assert.Equal(t, []string{"A"}, vote.Options)
}

func TestParseVoteExplicitQuestionWithContentOptions(t *testing.T) {
	set := ExtractTokens(textItems(
		"vote_question=Pick one",
		"content=A",
		"content=B",
	), DefaultMarker)

	vote := parseVote(set)
	require.NotNil(t, vote)
	assert.Equal(t, "Pick one", vote.Question)
	assert.Equal(t, []string{"A", "B"}, vote.Options)
}

func TestParseVoteContentIndexesReorder(t *testing.T) {
	set := ExtractTokens(textItems(
		"content=Q",
		"content=Second",
		"option_index=1",
		"content=First",
		"option_index=0",
	), DefaultMarker)

	vote := parseVote(set)
	require.NotNil(t, vote)
	assert.Equal(t, []string{"First", "Second"}, vote.Options)
}

func TestParseVoteEncounterOrder(t *testing.T) {
	set := ExtractTokens(textItems(
		"vote_question=Best season?",
		"total_options=3",
		"option=Winter",
		"option=Spring",
		"option=Summer",
	), DefaultMarker)

	vote := parseVote(set)
	require.NotNil(t, vote)
	assert.Equal(t, "Best season?", vote.Question)
	assert.Equal(t, []string{"Winter", "Spring", "Summer"}, vote.Options)
	assert.Equal(t, 3, vote.DeclaredOptionCount)
}

func TestParseVoteDeclaredIndexesReorder(t *testing.T) {
	set := ExtractTokens(textItems(
		"vote_question=Q",
		"option=Third",
		"option_index=2",
		"option=First",
		"option_index=0",
		"option=Second",
		"option_index=1",
	), DefaultMarker)

	vote := parseVote(set)
	require.NotNil(t, vote)
	assert.Equal(t, []string{"First", "Second", "Third"}, vote.Options)
}

func TestParseVoteDuplicateIndexesFallBack(t *testing.T) {
	set := ExtractTokens(textItems(
		"vote_question=Q",
		"option=A",
		"option_index=0",
		"option=B",
		"option_index=0",
	), DefaultMarker)

	vote := parseVote(set)
	require.NotNil(t, vote)
	assert.Equal(t, []string{"A", "B"}, vote.Options)
}

func TestParseVotePartialIndexesFallBack(t *testing.T) {
	set := ExtractTokens(textItems(
		"vote_question=Q",
		"option=A",
		"option=B",
		"option_index=0",
	), DefaultMarker)

	vote := parseVote(set)
	require.NotNil(t, vote)
	// A carries no index, so encounter order stands
	assert.Equal(t, []string{"A", "B"}, vote.Options)
}

func TestParseVoteCountStoredNotVerified(t *testing.T) {
	set := ExtractTokens(textItems(
		"vote_question=Q",
		"total_options=5",
		"option=Only",
	), DefaultMarker)

	vote := parseVote(set)
	require.NotNil(t, vote)
	assert.Equal(t, 5, vote.DeclaredOptionCount)
	assert.Len(t, vote.Options, 1)
}

func TestParseVoteOptionsHash(t *testing.T) {
	set := ExtractTokens(textItems(
		"vote_question=Q",
		"options_hash=deadbeef",
	), DefaultMarker)

	vote := parseVote(set)
	require.NotNil(t, vote)
	assert.Equal(t, "deadbeef", vote.OptionsHash)
}

func TestParseVoteLegacyQuestionFromFirstOption(t *testing.T) {
	set := ExtractTokens(textItems(
		"option=What now?",
		"option=Yes",
		"option=No",
	), DefaultMarker)

	vote := parseVote(set)
	require.NotNil(t, vote)
	assert.Equal(t, "What now?", vote.Question)
	assert.Equal(t, []string{"Yes", "No"}, vote.Options)
}

func TestParseVoteEmptyOptionsSkipped(t *testing.T) {
	set := ExtractTokens(textItems(
		"vote_question=Q",
		"option=",
		"option=Real",
	), DefaultMarker)

	vote := parseVote(set)
	require.NotNil(t, vote)
	assert.Equal(t, []string{"Real"}, vote.Options)
}
