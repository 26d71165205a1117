package pipeline

import (
	"fmt"

	"golang.org/x/crypto/sha3"
)

// TabIDForURL derives a stable page-context identifier from a URL.
// The scan command has no browser tabs, so the URL hash stands in:
// rescanning the same URL lands on the same context, which keeps the
// cooldown gate and the per-tab storage row meaningful.
func TabIDForURL(url string) string {
	sum := sha3.Sum256([]byte(url))
	return fmt.Sprintf("url-%x", sum[:8])
}
