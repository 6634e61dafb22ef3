package main

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/security"
)

func TestRunSealsStdin(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	var out bytes.Buffer

	require.NoError(t, run(strings.NewReader("shpat_abc\n"), &out, key))

	c, err := security.NewTokenCipher(key)
	require.NoError(t, err)
	plain, err := c.Open(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "shpat_abc", plain)
}

func TestRunRejectsEmptyInputAndBadKey(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	assert.Error(t, run(strings.NewReader("\n"), &bytes.Buffer{}, key))
	assert.Error(t, run(strings.NewReader("x"), &bytes.Buffer{}, "short"))
}
