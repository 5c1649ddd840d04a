// ABOUTME: Tests for button token encoding
// ABOUTME: Round trips of choice, watch and subscription tokens

package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/rail-scout/internal/subscription"
)

func TestChoiceToken(t *testing.T) {
	prefix, gen, idx, ok := parseChoice(choiceToken(prefixTrain, 17, 3))

	require.True(t, ok)
	assert.Equal(t, prefixTrain, prefix)
	assert.Equal(t, uint64(17), gen)
	assert.Equal(t, 3, idx)

	for _, bad := range []string{"", "tr", "tr:1", "tr:-1:2", "tr:1:x", "tr:1:2:3"} {
		_, _, _, ok := parseChoice(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseWatch(t *testing.T) {
	sub, ok := parseWatch(watchTrainToken("2000000", "2004000", "01.12.2026", "23:55", "020У"))
	require.True(t, ok)
	assert.Equal(t, subscription.Subscription{
		Kind:            subscription.KindTrain,
		OriginCode:      "2000000",
		DestinationCode: "2004000",
		Date:            "01.12.2026",
		Time:            "23:55",
		TrainNumber:     "020У",
	}, sub)

	sub, ok = parseWatch(watchDayToken("2000000", "2004000", "01.12.2026"))
	require.True(t, ok)
	assert.Equal(t, subscription.KindDay, sub.Kind)

	for _, bad := range []string{"watch:d:1_2", "watch:t:1_2_3", "watch:x:1_2_3", "nope:d:1_2_3"} {
		_, ok := parseWatch(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseSub(t *testing.T) {
	action, id, ok := parseSub(subToken(subDelete, "abc-123"))
	require.True(t, ok)
	assert.Equal(t, subDelete, action)
	assert.Equal(t, "abc-123", id)

	_, _, ok = parseSub("sub:del:")
	assert.False(t, ok)
}

func TestFits(t *testing.T) {
	assert.True(t, fits(watchTrainToken("2000000", "2004000", "01.12.2026", "23:55", "020У")))
	assert.False(t, fits(watchDayToken(string(make([]byte, 60)), "1", "01.12.2026")))
}
