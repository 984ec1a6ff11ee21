package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

var _ summary.Clock = New()

func TestClockNow(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	got := New().Now()
	after := time.Now().Add(time.Second)

	require.Equal(t, time.UTC, got.Location())
	require.WithinRange(t, got, before, after)
	require.Zero(t, got.Nanosecond()%int(time.Microsecond), "timestamps match timestamptz resolution")
}
