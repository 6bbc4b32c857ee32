package publishers

import (
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-feed-loader/internal/feed"
)

func sampleEvent(t *testing.T) Event {
	t.Helper()
	img, err := url.Parse("https://img.example.com/1.png")
	require.NoError(t, err)
	item := feed.NewItem(uuid.MustParse("6f1c2a8e-3d4b-4c5a-9e8f-0a1b2c3d4e5f"), nil, nil, img)
	return NewEvent("source-1", "Source One", "https://feed.example.com/items", item)
}
