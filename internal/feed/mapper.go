package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const (
	itemsKey       = "items"
	idKey          = "id"
	descriptionKey = "description"
	locationKey    = "location"
	imageKey       = "image"

	canonicalUUIDLen = 36

	// unreserved, gen-delims, sub-delims and the percent sign
	uriPunctuation = "-._~:/?#[]@!$&'()*+,;=%"
)

var (
	errNotObject    = errors.New("payload is not a JSON object")
	errMissingItems = errors.New(`payload has no "items" key`)
	errItemsNotList = errors.New(`"items" is not an array`)
)

// decodeItems parses a 200 response body. The document is first parsed generically,
// then every entry is validated; a single bad entry rejects the whole payload.
func decodeItems(body []byte) ([]Item, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if doc == nil {
		return nil, errNotObject
	}

	rawItems, ok := doc[itemsKey]
	if !ok {
		return nil, errMissingItems
	}
	if isNull(rawItems) {
		return nil, errItemsNotList
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(rawItems, &entries); err != nil {
		return nil, errItemsNotList
	}

	items := make([]Item, 0, len(entries))
	for idx, entry := range entries {
		item, err := decodeItem(entry)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", idx, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// decodeItem validates a single entry and builds the Item.
func decodeItem(raw json.RawMessage) (Item, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Item{}, errors.New("entry is not a JSON object")
	}

	rawID, err := requiredString(fields, idKey)
	if err != nil {
		return Item{}, err
	}
	id, err := parseID(rawID)
	if err != nil {
		return Item{}, err
	}

	rawImage, err := requiredString(fields, imageKey)
	if err != nil {
		return Item{}, err
	}
	image, err := parseImageURL(rawImage)
	if err != nil {
		return Item{}, err
	}

	description, err := optionalString(fields, descriptionKey)
	if err != nil {
		return Item{}, err
	}
	location, err := optionalString(fields, locationKey)
	if err != nil {
		return Item{}, err
	}

	return Item{
		id:          id,
		description: description,
		location:    location,
		image:       *image,
	}, nil
}

func requiredString(fields map[string]json.RawMessage, key string) (string, error) {
	val, err := optionalString(fields, key)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", fmt.Errorf("%q is required", key)
	}
	return *val, nil
}

// optionalString returns nil for a missing or null key and an error for non-string values.
func optionalString(fields map[string]json.RawMessage, key string) (*string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%q must be a string", key)
	}
	return &s, nil
}

// parseID accepts only the hyphenated 8-4-4-4-12 form.
func parseID(raw string) (uuid.UUID, error) {
	if len(raw) != canonicalUUIDLen {
		return uuid.Nil, fmt.Errorf("%q is not a canonical uuid: %q", idKey, raw)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%q is not a uuid: %w", idKey, err)
	}
	return id, nil
}

// parseImageURL accepts an absolute URI made only of RFC 3986 characters.
func parseImageURL(raw string) (*url.URL, error) {
	if i := strings.IndexFunc(raw, func(r rune) bool { return !isURIRune(r) }); i >= 0 {
		return nil, fmt.Errorf("%q has a character not allowed in a uri at offset %d: %q", imageKey, i, raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%q is not a uri: %w", imageKey, err)
	}
	if !u.IsAbs() || (u.Host == "" && u.Opaque == "") {
		return nil, fmt.Errorf("%q must be an absolute uri: %q", imageKey, raw)
	}
	return u, nil
}

// isURIRune reports whether r may appear literally in an RFC 3986 URI reference.
func isURIRune(r rune) bool {
	switch {
	case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
		return true
	}
	return strings.ContainsRune(uriPunctuation, r)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
