package extract

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/verifyhq/verifyscan/internal/model"
)

// Extraction limits. The extractor bounds are deliberately tighter than
// the orchestrator's sampling bounds: extraction feeds at most ten
// passages of 100-2000 characters into the scan cycle.
const (
	// MaxTexts is the maximum number of text passages returned.
	MaxTexts = 10

	// MinPassageLength and MaxPassageLength bound accepted passages.
	// Short fragments are navigation noise; very long blocks are
	// concatenated boilerplate.
	MinPassageLength = 100
	MaxPassageLength = 2000

	// DedupPrefixLength is the number of characters of the normalized
	// passage used as the deduplication key. Repeated boilerplate
	// (bylines, syndicated intros) shares a prefix even when trailing
	// content differs.
	DedupPrefixLength = 150

	// MinImageDimension excludes small decorative images. Images whose
	// width or height attribute is at most this value are skipped.
	MinImageDimension = 100

	// minPriorityMatches is the threshold below which extraction falls
	// back to scanning all paragraphs.
	minPriorityMatches = 3
)

// prioritySelectors are tried first, in order. They target containers
// most likely to hold meaningful editorial content.
var prioritySelectors = []string{
	"article p",
	"article h1",
	"article h2",
	"article h3",
	"main p",
	`div[role="main"] p`,
	".content p",
	".article p",
	"blockquote",
}

// excludedAncestors is the selector for containers whose text is
// chrome, not content.
const excludedAncestors = "nav, header, footer, script, style"

// blacklistPhrases mark UI boilerplate that survives the selector
// filters (consent banners, signup prompts).
var blacklistPhrases = []string{
	"cookie",
	"subscribe",
	"sign up",
	"log in",
}

// skipImageMarkers exclude obvious non-content images by URL.
var skipImageMarkers = []string{"icon", "logo", "avatar"}

// embedHosts are iframe sources recognized as video embeds.
var embedHosts = []string{
	"youtube.com",
	"youtu.be",
	"vimeo.com",
	"dailymotion.com",
}

// Content is the full extraction result for one page, grouped by
// modality. Items are ephemeral: they live for one scan cycle only.
type Content struct {
	Texts  []model.CandidateItem
	Images []model.CandidateItem
	Videos []model.CandidateItem
	Voices []model.CandidateItem
}

// Counts returns per-modality candidate counts.
func (c *Content) Counts() model.ContentCounts {
	return model.ContentCounts{
		Texts:  len(c.Texts),
		Images: len(c.Images),
		Videos: len(c.Videos),
		Voices: len(c.Voices),
	}
}

// All returns every candidate in modality order.
func (c *Content) All() []model.CandidateItem {
	all := make([]model.CandidateItem, 0, len(c.Texts)+len(c.Images)+len(c.Videos)+len(c.Voices))
	all = append(all, c.Texts...)
	all = append(all, c.Images...)
	all = append(all, c.Videos...)
	all = append(all, c.Voices...)
	return all
}

// Extractor produces candidate items from a parsed document.
//
// Design decision: selectors are compiled per call with cascadia rather
// than goquery's Find, because Find panics on a malformed selector.
// Compiling explicitly lets a bad selector be skipped while extraction
// continues with the remaining ones.
type Extractor struct {
	// baseURL resolves relative media URLs.
	baseURL *url.URL

	// logger for per-selector failures.
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New creates an Extractor for a page at the given base URL.
func New(baseURL string, opts ...Option) (*Extractor, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	e := &Extractor{baseURL: u, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract collects all candidate items from the document.
func (e *Extractor) Extract(doc *goquery.Document) *Content {
	return &Content{
		Texts:  e.ExtractTexts(doc),
		Images: e.ExtractImages(doc),
		Videos: e.ExtractVideos(doc),
		Voices: e.ExtractVoices(doc),
	}
}

// ExtractTexts returns up to MaxTexts deduplicated passages. Priority
// selectors are tried first; when they yield fewer than three matches
// the extractor falls back to every paragraph meeting the length
// bounds.
func (e *Extractor) ExtractTexts(doc *goquery.Document) []model.CandidateItem {
	items := make([]model.CandidateItem, 0)

	for _, selector := range prioritySelectors {
		sel, err := cascadia.Compile(selector)
		if err != nil {
			// Partial failure tolerated: skip this selector only.
			e.logger.Debug("skipping malformed selector", "selector", selector, "error", err)
			continue
		}

		doc.FindMatcher(sel).Each(func(i int, s *goquery.Selection) {
			if item, ok := e.candidateText(s, selector, i); ok {
				items = append(items, item)
			}
		})
	}

	if len(items) >= minPriorityMatches {
		return capItems(dedupTexts(items), MaxTexts)
	}

	// Fallback: all paragraphs meeting the length bounds, without the
	// phrase blacklist (priority filtering already failed to find
	// enough structured content).
	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if n := utf8.RuneCountInString(text); n >= MinPassageLength && n <= MaxPassageLength {
			items = append(items, model.CandidateItem{
				Kind:      model.KindText,
				Payload:   text,
				SourceRef: fmt.Sprintf("p#%d", i),
			})
		}
	})

	return capItems(dedupTexts(items), MaxTexts)
}

// candidateText applies the passage filters to one selection.
func (e *Extractor) candidateText(s *goquery.Selection, selector string, index int) (model.CandidateItem, bool) {
	text := strings.TrimSpace(s.Text())

	if n := utf8.RuneCountInString(text); n < MinPassageLength || n > MaxPassageLength {
		return model.CandidateItem{}, false
	}

	if s.ParentsFiltered(excludedAncestors).Length() > 0 {
		return model.CandidateItem{}, false
	}

	lower := strings.ToLower(text)
	for _, phrase := range blacklistPhrases {
		if strings.Contains(lower, phrase) {
			return model.CandidateItem{}, false
		}
	}

	return model.CandidateItem{
		Kind:      model.KindText,
		Payload:   text,
		SourceRef: fmt.Sprintf("%s#%d", selector, index),
	}, true
}

// ExtractImages returns content images: large enough by declared
// dimensions and not named like chrome (icons, logos, avatars).
// Images without declared dimensions are kept, since static HTML gives
// no rendered size to filter on.
func (e *Extractor) ExtractImages(doc *goquery.Document) []model.CandidateItem {
	items := make([]model.CandidateItem, 0)
	seen := make(map[string]bool)

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if src == "" {
			src = s.AttrOr("data-src", "")
		}
		if src == "" {
			return
		}

		lower := strings.ToLower(src)
		for _, marker := range skipImageMarkers {
			if strings.Contains(lower, marker) {
				return
			}
		}

		if tooSmall(s.AttrOr("width", "")) || tooSmall(s.AttrOr("height", "")) {
			return
		}

		resolved := e.resolveURL(src)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true

		items = append(items, model.CandidateItem{
			Kind:      model.KindImage,
			Payload:   resolved,
			SourceRef: fmt.Sprintf("img#%d", i),
		})
	})

	return items
}

// ExtractVideos returns native video sources and recognized embeds.
func (e *Extractor) ExtractVideos(doc *goquery.Document) []model.CandidateItem {
	items := make([]model.CandidateItem, 0)
	seen := make(map[string]bool)

	add := func(src, ref string) {
		resolved := e.resolveURL(src)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		items = append(items, model.CandidateItem{
			Kind:      model.KindVideo,
			Payload:   resolved,
			SourceRef: ref,
		})
	}

	doc.Find("video").Each(func(i int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if src == "" {
			src = s.Find("source").AttrOr("src", "")
		}
		if src != "" {
			add(src, fmt.Sprintf("video#%d", i))
		}
	})

	doc.Find("iframe").Each(func(i int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if src == "" {
			return
		}
		lower := strings.ToLower(src)
		for _, host := range embedHosts {
			if strings.Contains(lower, host) {
				add(src, fmt.Sprintf("iframe#%d", i))
				return
			}
		}
	})

	return items
}

// ExtractVoices returns audio sources found on the page.
func (e *Extractor) ExtractVoices(doc *goquery.Document) []model.CandidateItem {
	items := make([]model.CandidateItem, 0)
	seen := make(map[string]bool)

	doc.Find("audio").Each(func(i int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if src == "" {
			src = s.Find("source").AttrOr("src", "")
		}
		if src == "" {
			return
		}

		resolved := e.resolveURL(src)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true

		items = append(items, model.CandidateItem{
			Kind:      model.KindVoice,
			Payload:   resolved,
			SourceRef: fmt.Sprintf("audio#%d", i),
		})
	})

	return items
}

// resolveURL resolves a possibly relative URL against the base URL.
// Data URIs and javascript pseudo-URLs are rejected.
func (e *Extractor) resolveURL(src string) string {
	src = strings.TrimSpace(src)
	if src == "" ||
		strings.HasPrefix(src, "data:") ||
		strings.HasPrefix(src, "javascript:") {
		return ""
	}

	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	return e.baseURL.ResolveReference(u).String()
}

// tooSmall reports whether a declared dimension attribute is present
// and at most MinImageDimension pixels.
func tooSmall(attr string) bool {
	if attr == "" {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(attr, "px"))
	if err != nil {
		return false
	}
	return n <= MinImageDimension
}

// dedupTexts removes passages whose normalized prefix has been seen.
// The key is the lowercase first DedupPrefixLength characters, so two
// passages differing only after the prefix collapse to one.
func dedupTexts(items []model.CandidateItem) []model.CandidateItem {
	seen := make(map[string]bool)
	unique := make([]model.CandidateItem, 0, len(items))

	for _, item := range items {
		key := strings.ToLower(item.Payload)
		// Slice runes, not bytes: a prefix boundary inside a multi-byte
		// character would make equal-prefix passages key differently.
		if runes := []rune(key); len(runes) > DedupPrefixLength {
			key = string(runes[:DedupPrefixLength])
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, item)
	}

	return unique
}

// capItems truncates the slice to at most n items.
func capItems(items []model.CandidateItem, n int) []model.CandidateItem {
	if len(items) > n {
		return items[:n]
	}
	return items
}
