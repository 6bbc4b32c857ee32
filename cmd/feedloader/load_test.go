package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/samvad-feed-loader/internal/config"
	"github.com/samvad-hq/samvad-feed-loader/internal/feed"
)

type stubLoader struct {
	items []feed.Item
	err   error
}

func (s stubLoader) Load(context.Context) ([]feed.Item, error) { return s.items, s.err }

func sampleItems(t *testing.T) []feed.Item {
	t.Helper()
	img, err := url.Parse("https://img.example.com/a.png")
	require.NoError(t, err)
	loc := "A location"
	return []feed.Item{feed.NewItem(uuid.MustParse("6f1c2a8e-3d4b-4c5a-9e8f-0a1b2c3d4e5f"), nil, &loc, img)}
}

func TestRunLoadWritesJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runLoad(context.Background(), stubLoader{items: sampleItems(t)}, "json", &out))

	var doc struct {
		Items []feed.Item `json:"items"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	require.Len(t, doc.Items, 1)
	assert.True(t, doc.Items[0].Equal(sampleItems(t)[0]))
}

func TestRunLoadWritesYAML(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runLoad(context.Background(), stubLoader{items: sampleItems(t)}, "yaml", &out))

	var doc map[string][]map[string]string
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
	require.Len(t, doc["items"], 1)
	assert.Equal(t, "A location", doc["items"][0]["location"])
	assert.Equal(t, "https://img.example.com/a.png", doc["items"][0]["image"])
}

func TestRunLoadReportsErrorKind(t *testing.T) {
	err := runLoad(context.Background(), stubLoader{err: feed.ErrConnectivity}, "json", &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, "load failed: connectivity", err.Error())
}

func TestRunLoadRejectsUnknownFormat(t *testing.T) {
	err := runLoad(context.Background(), stubLoader{items: []feed.Item{}}, "xml", &bytes.Buffer{})
	require.Error(t, err)
}

func TestResolveTargetPrecedence(t *testing.T) {
	cfg := &config.Config{FeedURL: "https://env.example.com"}

	target, _, err := resolveTarget(cfg, &loadOptions{url: "https://flag.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://flag.example.com", target)

	target, _, err = resolveTarget(cfg, &loadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", target)

	_, _, err = resolveTarget(&config.Config{}, &loadOptions{})
	require.Error(t, err)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"load", "watch"}, names)
}
