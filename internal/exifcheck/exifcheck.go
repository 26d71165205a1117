// Package exifcheck inspects image metadata for provenance signals.
// It is a local complement to the remote image classifier: generation
// and heavy-editing tools frequently stamp the EXIF Software tag, and
// that signal survives even when the detection API is unreachable.
package exifcheck

import (
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// generatorConfidence is reported for a generator-tool match, and
// editorConfidence for a conventional editing tool. A software tag is
// strong evidence of synthesis but only weak evidence of deception.
const (
	generatorConfidence = 0.85
	editorConfidence    = 0.55
)

// generatorMarkers identify AI generation tools in software tags.
var generatorMarkers = []string{
	"stable diffusion",
	"midjourney",
	"dall-e",
	"dall·e",
	"firefly",
	"imagen",
	"flux",
	"comfyui",
	"automatic1111",
	"invokeai",
	"novelai",
}

// editorMarkers identify manipulation-capable editing tools.
var editorMarkers = []string{
	"photoshop",
	"gimp",
	"affinity photo",
	"facetune",
	"faceapp",
}

// softwareTags are the EXIF tags that carry tool names.
var softwareTags = map[string]bool{
	"Software":           true,
	"ProcessingSoftware": true,
	"HostComputer":       false, // OS name, not a tool; kept for reference
}

// Finding is a provenance signal extracted from image metadata.
type Finding struct {
	// Tag is the EXIF tag that carried the signal.
	Tag string

	// Software is the tag's formatted value.
	Software string

	// Generated is true for generation tools, false for editors.
	Generated bool

	// Confidence is the heuristic's confidence in [0,1].
	Confidence float64
}

// Inspect scans image bytes for software provenance markers.
// Returns nil when the image has no EXIF block or no matching tag;
// absence of metadata is not evidence either way. Parse failures are
// swallowed for the same reason the orchestrator drops failed items:
// one unreadable image must not disturb the scan.
func Inspect(imageData []byte) *Finding {
	rawExif, err := exif.SearchAndExtractExif(imageData)
	if err != nil || rawExif == nil {
		return nil
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil
	}

	for _, entry := range entries {
		if !softwareTags[entry.TagName] {
			continue
		}

		value := strings.ToLower(entry.Formatted)

		for _, marker := range generatorMarkers {
			if strings.Contains(value, marker) {
				return &Finding{
					Tag:        entry.TagName,
					Software:   entry.Formatted,
					Generated:  true,
					Confidence: generatorConfidence,
				}
			}
		}

		for _, marker := range editorMarkers {
			if strings.Contains(value, marker) {
				return &Finding{
					Tag:        entry.TagName,
					Software:   entry.Formatted,
					Generated:  false,
					Confidence: editorConfidence,
				}
			}
		}
	}

	return nil
}
