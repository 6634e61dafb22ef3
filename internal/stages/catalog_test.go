package stages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	list := c.Stages()
	require.Len(t, list, 7)

	assert.Equal(t, "sent_to_design_production", list[0].Key)
	assert.Equal(t, "sent_to_design_production_timestamp", list[0].TimestampKey)
	assert.Equal(t, SourceMetafield, list[0].Source)
	assert.Equal(t, "Shipped Out", list[6].Name)
	assert.Equal(t, "shipped_out_timestamp", list[6].TimestampKey)

	for _, s := range list {
		assert.Empty(t, s.StaffKey, s.Key)
	}
}

func TestStagesReturnsCopy(t *testing.T) {
	c := Default()
	list := c.Stages()
	list[0].Key = "mutated"
	assert.Equal(t, "sent_to_design_production", c.Stages()[0].Key)
}

func TestNewCatalogRejects(t *testing.T) {
	cases := map[string][]Stage{
		"empty":               nil,
		"missing key":         {{Name: "x"}},
		"duplicate key":       {{Key: "a"}, {Key: "a"}},
		"bad source":          {{Key: "a", Source: "header"}},
		"shared timestamp":    {{Key: "a", TimestampKey: "ts"}, {Key: "b", TimestampKey: "ts"}},
		"staff equals ts":     {{Key: "a", TimestampKey: "x", StaffKey: "x"}},
		"writes a signal":     {{Key: "a", TimestampKey: "b"}, {Key: "b"}},
		"timestamp is itself": {{Key: "a", TimestampKey: "a"}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewCatalog(in)
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
stages:
  - key: in_production
    name: In Production
    staff_key: in_production_staff
  - key: rush
    source: TAG
    timestamp_key: rush_started_at
`), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)

	list := c.Stages()
	require.Len(t, list, 2)
	assert.Equal(t, Stage{
		Key:          "in_production",
		Name:         "In Production",
		TimestampKey: "in_production_timestamp",
		StaffKey:     "in_production_staff",
		Source:       SourceMetafield,
	}, list[0])
	assert.Equal(t, Stage{
		Key:          "rush",
		Name:         "rush",
		TimestampKey: "rush_started_at",
		Source:       SourceTag,
	}, list[1])
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
