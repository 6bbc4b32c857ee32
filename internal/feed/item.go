package feed

import (
	"encoding/json"
	"net/url"

	"github.com/google/uuid"
)

// Item is a validated feed entry decoded from a remote payload. Its fields are
// reachable only through accessors, so copies of an Item cannot affect each other.
type Item struct {
	id          uuid.UUID
	description *string
	location    *string
	image       url.URL
}

// NewItem builds an Item from copies of the given values.
func NewItem(id uuid.UUID, description, location *string, imageURL *url.URL) Item {
	item := Item{
		id:          id,
		description: cloneString(description),
		location:    cloneString(location),
	}
	if imageURL != nil {
		item.image = *imageURL
	}
	return item
}

// ID returns the item id.
func (i Item) ID() uuid.UUID { return i.id }

// Description returns the description and whether the payload carried one.
func (i Item) Description() (string, bool) { return deref(i.description) }

// Location returns the location and whether the payload carried one.
func (i Item) Location() (string, bool) { return deref(i.location) }

// ImageURL returns a copy of the image URL.
func (i Item) ImageURL() url.URL { return i.image }

// Equal reports whether both items carry the same id, description, location and image.
func (i Item) Equal(other Item) bool {
	return i.id == other.id &&
		equalString(i.description, other.description) &&
		equalString(i.location, other.location) &&
		i.image.String() == other.image.String()
}

// MarshalJSON writes the item in the remote wire shape.
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(remoteItem{
		ID:          i.id.String(),
		Description: i.description,
		Location:    i.location,
		Image:       i.image.String(),
	})
}

// UnmarshalJSON applies the same field validation the loader uses for payload entries.
func (i *Item) UnmarshalJSON(data []byte) error {
	item, err := decodeItem(data)
	if err != nil {
		return err
	}
	*i = item
	return nil
}

// remoteItem mirrors one entry of the "items" array on the wire.
type remoteItem struct {
	ID          string  `json:"id"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	Image       string  `json:"image"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
