package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hub-connectors/pkg/card"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func testCard(title string) *card.Card {
	return card.NewBuilder().
		SetName("jira").
		SetHeader(card.NewHeaderBuilder().SetTitle(title).Build()).
		Build()
}

func TestCheckHashes(t *testing.T) {
	path := writeJSON(t, card.NewCards(testCard("one"), testCard("two")))

	for _, strict := range []bool{false, true} {
		var out bytes.Buffer
		require.NoError(t, checkHashes(&out, path, strict))
		assert.Equal(t, 2, strings.Count(out.String(), " ok"))
	}
}

func TestCheckHashes_Override(t *testing.T) {
	overridden := card.NewBuilder().
		SetName("jira").
		SetHeader(card.NewHeaderBuilder().SetTitle("one").Build()).
		SetHash("caller-supplied").
		Build()
	path := writeJSON(t, card.NewCards(testCard("two"), overridden))

	tests := []struct {
		name    string
		strict  bool
		wantErr bool
		status  string
	}{
		{name: "override is reported", strict: false, wantErr: false, status: "override stored=caller-supplied"},
		{name: "strict fails on override", strict: true, wantErr: true, status: "MISMATCH stored=caller-supplied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := checkHashes(&out, path, tt.strict)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Contains(t, out.String(), tt.status)
			assert.Equal(t, 1, strings.Count(out.String(), " ok"))
		})
	}
}

func TestValidateCards(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, validateCards(&out, writeJSON(t, testCard("one"))))
	assert.Contains(t, out.String(), "All 1 cards valid.")

	out.Reset()
	err := validateCards(&out, writeJSON(t, card.NewCards(testCard(""))))
	require.Error(t, err)
	assert.Contains(t, out.String(), "header.title")
}

func TestCheckDiscovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"version": "1.0",
		"object_types": {"card": {"endpoint": {"href": "cards/requests"}}}
	}`), 0644))

	var out bytes.Buffer
	require.NoError(t, checkDiscovery(&out, path, "https://connectors.example.com/"))
	assert.Contains(t, out.String(), "card -> https://connectors.example.com/cards/requests")

	require.NoError(t, os.WriteFile(path, []byte(`{"object_types": {}}`), 0644))
	assert.Error(t, checkDiscovery(&out, path, ""))
}
