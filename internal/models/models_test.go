package models

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTone(t *testing.T) {
	tone, err := ParseTone("")
	require.NoError(t, err)
	assert.Equal(t, ToneFriendly, tone)

	for _, want := range AllTones {
		got, err := ParseTone(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = ParseTone("sarcastic")
	assert.Error(t, err)
}

func TestChatTitle(t *testing.T) {
	assert.Equal(t, "hello", ChatTitle("hello"))

	long := strings.Repeat("ż", 60)
	title := ChatTitle(long)
	assert.Equal(t, strings.Repeat("ż", 50)+"...", title)
}

func TestNextMidnightKeepsLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)

	now := time.Date(2026, 3, 31, 23, 15, 0, 0, loc)
	next := NextMidnight(now)

	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, loc), next)
	assert.Equal(t, "2026-03-31", UsageDay(now))
	assert.Equal(t, "2026-04-01", UsageDay(next))
}

func TestStatusFromCode(t *testing.T) {
	assert.Equal(t, StatusSuccess, StatusFromCode(200))
	assert.Equal(t, StatusDenied, StatusFromCode(429))
	assert.Equal(t, StatusError, StatusFromCode(503))
}
