// Package extract pulls candidate content items out of a parsed page:
// substantial text passages, large content images, native videos plus
// recognized embeds, and audio sources. Extraction is a pure read of
// the document; heuristics (priority selectors, length bounds, UI
// phrase blacklist, prefix dedup) keep boilerplate out of the
// candidate set so classification budget is spent on real content.
package extract
