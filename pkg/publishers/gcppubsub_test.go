package publishers

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGCPPubSubPublisherPublishes(t *testing.T) {
	server := pstest.NewServer()
	defer server.Close()
	t.Setenv("PUBSUB_EMULATOR_HOST", server.Addr)

	ctx := context.Background()
	admin, err := pubsub.NewClient(ctx, "test-project")
	require.NoError(t, err)
	defer admin.Close()
	_, err = admin.CreateTopic(ctx, "items")
	require.NoError(t, err)

	pub, err := newGCPPubSubPublisher(ctx, PublisherConfig{
		ID:        "gcp",
		Type:      TypeGCPPubSub,
		GCPPubSub: &GCPPubSubPublisherConfig{ProjectID: "test-project", Topic: "items"},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, pub.Publish(ctx, sampleEvent(t)))
	require.NoError(t, NewFanout([]Publisher{pub}).Close())

	msgs := server.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "source-1", msgs[0].Attributes["source_id"])
	assert.Contains(t, string(msgs[0].Data), `"source_url":"https://feed.example.com/items"`)
}
