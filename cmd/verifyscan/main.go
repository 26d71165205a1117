// Package main provides the entry point for the verifyscan CLI.
//
// Verifyscan checks web pages for AI-generated and manipulated content.
// It extracts text passages and media from a page, runs them against a
// deepfake detection API, and reports what it finds.
//
// Usage:
//
//	verifyscan scan <url>
//	verifyscan watch <url>
//
// See --help for all available options.
package main

// main is the entry point for verifyscan.
func main() {
	Execute()
}
