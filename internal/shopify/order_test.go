package shopify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOrderNumericID(t *testing.T) {
	o, err := DecodeOrder([]byte(`{
		"id": 820982911946154508,
		"name": "#1001",
		"tags": "rush, In_Production ,",
		"metafields": {"custom": {"in_production": "Yes", "rush": true}},
		"updated_by": {"name": "Dana", "email": "dana@example.com"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "820982911946154508", o.ID)
	assert.Equal(t, "#1001", o.Name)
	assert.Equal(t, []string{"rush", "In_Production"}, o.Tags)
	assert.Equal(t, "Dana", o.UpdatedBy)
	assert.True(t, o.HasTag("in_production"))
	assert.False(t, o.HasTag("packed"))

	v, ok := o.FieldValue("custom", "in_production")
	assert.True(t, ok)
	assert.Equal(t, "Yes", v)

	v, ok = o.FieldValue("custom", "rush")
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	_, ok = o.FieldValue("custom", "missing")
	assert.False(t, ok)
}

func TestDecodeOrderSkipsNonObjectNamespaces(t *testing.T) {
	o, err := DecodeOrder([]byte(`{"id":1,"metafields":{"custom":{"in_production":"Yes"},"note":"x","count":3}}`))
	require.NoError(t, err)

	v, ok := o.FieldValue("custom", "in_production")
	assert.True(t, ok)
	assert.Equal(t, "Yes", v)
}

func TestDecodeOrderStringIDAndArrayShapes(t *testing.T) {
	o, err := DecodeOrder([]byte(`{
		"id": "42",
		"tags": ["a", " b "],
		"metafields": [{"namespace":"custom","key":"shipped_out","value":"yes"}],
		"updated_by": "ops@example.com"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "42", o.ID)
	assert.Equal(t, []string{"a", "b"}, o.Tags)
	assert.Equal(t, "ops@example.com", o.UpdatedBy)
	v, ok := o.FieldValue("custom", "shipped_out")
	assert.True(t, ok)
	assert.Equal(t, "yes", v)
}

func TestDecodeOrderActorFallbacks(t *testing.T) {
	o, err := DecodeOrder([]byte(`{"id":1,"updated_by":{"first_name":"Ana","last_name":"Li"}}`))
	require.NoError(t, err)
	assert.Equal(t, "Ana Li", o.UpdatedBy)

	o, err = DecodeOrder([]byte(`{"id":1,"updated_by":{"email":"a@b.c"}}`))
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", o.UpdatedBy)

	o, err = DecodeOrder([]byte(`{"id":1}`))
	require.NoError(t, err)
	assert.Equal(t, "", o.UpdatedBy)
	assert.Nil(t, o.Tags)
}

func TestDecodeOrderRejects(t *testing.T) {
	cases := map[string]string{
		"malformed":  `{"id":`,
		"missing id": `{"name":"#1"}`,
		"null id":    `{"id":null}`,
		"empty id":   `{"id":""}`,
		"object id":  `{"id":{"a":1}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeOrder([]byte(body))
			var pe *PayloadError
			require.True(t, errors.As(err, &pe), "got %v", err)
		})
	}
}
