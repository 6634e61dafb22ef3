package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/app"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/config"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/security"
)

// seal-secret reads a secret on stdin and prints the value to put in
// SHOPIFY_ACCESS_TOKEN_ENC or SHOPIFY_WEBHOOK_SECRET_ENC.
//
//	printf '%s' "$TOKEN" | TOKEN_ENC_KEY_B64=... seal-secret
func main() {
	cfg, logger, err := app.Bootstrap(context.Background(), func(c *config.Config) error {
		if c.Shopify.TokenEncKeyB64 == "" {
			return &config.ConfigError{Field: "TOKEN_ENC_KEY_B64"}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer logger.Sync()

	if err := run(os.Stdin, os.Stdout, cfg.Shopify.TokenEncKeyB64); err != nil {
		log.Fatalf("seal: %v", err)
	}
}

func run(in io.Reader, out io.Writer, keyB64 string) error {
	c, err := security.NewTokenCipher(keyB64)
	if err != nil {
		return err
	}

	raw, err := io.ReadAll(bufio.NewReader(in))
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	plain := strings.TrimRight(string(raw), "\r\n")
	if plain == "" {
		return fmt.Errorf("empty secret on stdin")
	}

	sealed, err := c.Seal(plain)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, sealed)
	return err
}
