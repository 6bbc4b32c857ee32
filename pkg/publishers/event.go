package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-feed-loader/internal/feed"
)

// Event is the payload published downstream for one newly seen feed item.
type Event struct {
	SourceID    string    `json:"source_id"`
	SourceName  string    `json:"source_name"`
	SourceURL   string    `json:"source_url"`
	Item        feed.Item `json:"item"`
	CollectedAt time.Time `json:"collected_at"`
}

// NewEvent constructs an Event stamped with the current UTC time.
func NewEvent(sourceID, sourceName, sourceURL string, item feed.Item) Event {
	return Event{
		SourceID:    sourceID,
		SourceName:  sourceName,
		SourceURL:   sourceURL,
		Item:        item,
		CollectedAt: time.Now().UTC(),
	}
}

// sourceAttribute is the message attribute carrying Event.SourceID on queue/topic sinks.
const sourceAttribute = "source_id"
