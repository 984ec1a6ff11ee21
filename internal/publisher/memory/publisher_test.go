package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

func TestPublisherStoresEvents(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), summary.Event{SummaryID: 1, Status: summary.StatusCompleted})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)

	id2, err := pub.Publish(context.Background(), summary.Event{SummaryID: 2, Status: summary.StatusFailed})
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	events := pub.Events()
	require.Len(t, events, 2)
	require.Equal(t, int64(1), events[0].SummaryID)

	events[0].SummaryID = 99
	require.Equal(t, int64(1), pub.Events()[0].SummaryID)
}
