package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

func member(role tele.MemberStatus) *tele.ChatMember {
	return &tele.ChatMember{User: &tele.User{ID: 1}, Role: role}
}

func TestIsJoinTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		old  *tele.ChatMember
		new  *tele.ChatMember
		want bool
	}{
		{name: "left to member", old: member(tele.Left), new: member(tele.Member), want: true},
		{name: "kicked to member", old: member(tele.Kicked), new: member(tele.Member), want: true},
		{name: "left to restricted", old: member(tele.Left), new: member(tele.Restricted), want: true},
		{name: "no previous state", old: nil, new: member(tele.Member), want: true},
		{name: "member to member", old: member(tele.Member), new: member(tele.Member), want: false},
		{name: "member to left", old: member(tele.Member), new: member(tele.Left), want: false},
		{name: "member to kicked", old: member(tele.Member), new: member(tele.Kicked), want: false},
		{name: "promotion", old: member(tele.Member), new: member(tele.Administrator), want: false},
		{name: "missing new state", old: member(tele.Left), new: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, isJoinTransition(tt.old, tt.new))
		})
	}
}

func TestParseID(t *testing.T) {
	t.Parallel()

	id, err := parseID(" 12345 ")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), id)

	id, err = parseID("-100987")
	require.NoError(t, err)
	assert.Equal(t, int64(-100987), id)

	_, err = parseID("abc")
	require.Error(t, err)
}

func TestParseTwoIDs(t *testing.T) {
	t.Parallel()

	first, second, err := parseTwoIDs("-100987 42")
	require.NoError(t, err)
	assert.Equal(t, int64(-100987), first)
	assert.Equal(t, int64(42), second)

	_, _, err = parseTwoIDs("42")
	require.Error(t, err)

	_, _, err = parseTwoIDs("a b")
	require.Error(t, err)
}
