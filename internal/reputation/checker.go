package reputation

import (
	"net/url"
	"strings"

	"github.com/verifyhq/verifyscan/internal/model"
)

// Fixed confidence values per list. The lists are curated, not learned,
// so confidence is a property of the list rather than the match.
const (
	fakeConfidence    = 0.92
	trustedConfidence = 0.93
	unknownConfidence = 0.5
)

// fakeDomains are hostnames known for spreading misinformation.
// Matching is bidirectional substring containment so that both
// "www.infowars.com" and a bare "infowars.com" hit.
var fakeDomains = []string{
	"naturalnews.com",
	"infowars.com",
	"beforeitsnews.com",
	"worldtruth.tv",
	"yournewswire.com",
	"neonnettle.com",
	"realfarmacy.com",
	"thelastamericanvagabond.com",
	"collective-evolution.com",
	"activistpost.com",
	"themindunleashed.com",
	"davidicke.com",
	"newspunch.com",
	"bigleaguepolitics.com",
	"thegatewaypundit.com",
	"breitbart.com",
	"dailycaller.com",
	"conservativetribune.com",
	"thefederalistpapers.org",
	"dcclothesline.com",
}

// trustedDomains are established, reliable sources.
var trustedDomains = []string{
	"cdc.gov",
	"nih.gov",
	"who.int",
	"fda.gov",
	"nasa.gov",
	"bbc.com",
	"bbc.co.uk",
	"reuters.com",
	"apnews.com",
	"nytimes.com",
	"washingtonpost.com",
	"theguardian.com",
	"cnn.com",
	"npr.org",
	"pbs.org",
	"economist.com",
	"nature.com",
	"science.org",
	"sciencemag.org",
	"wikipedia.org",
	"snopes.com",
	"factcheck.org",
	"politifact.com",
	"fullfact.org",
	"mediabiasfactcheck.com",
}

// Check classifies a URL or bare hostname against the static lists.
// It is idempotent and side-effect free; the same input always yields
// the same classification.
func Check(rawURL string) model.DomainReputation {
	domain := ExtractDomain(rawURL)

	isFake := matchAny(domain, fakeDomains)
	isTrusted := matchAny(domain, trustedDomains)

	rep := model.DomainReputation{
		Domain:     domain,
		IsFake:     isFake,
		IsTrusted:  isTrusted,
		Confidence: unknownConfidence,
		Source:     model.ReputationUnknown,
	}

	switch {
	case isFake:
		rep.Confidence = fakeConfidence
		rep.Source = model.ReputationBlacklist
	case isTrusted:
		rep.Confidence = trustedConfidence
		rep.Source = model.ReputationWhitelist
	}

	return rep
}

// ExtractDomain returns the lowercase hostname of a URL, tolerating a
// missing scheme and bare hostnames.
func ExtractDomain(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)

	// Already a bare domain
	if !strings.Contains(rawURL, "/") && !strings.Contains(rawURL, ":") {
		return strings.ToLower(strings.TrimPrefix(rawURL, "www."))
	}

	target := rawURL
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}

	if u, err := url.Parse(target); err == nil && u.Hostname() != "" {
		return strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	}

	// Fallback: strip scheme and path manually
	host := rawURL
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "www.")
	if i := strings.IndexAny(host, "/:"); i >= 0 {
		host = host[:i]
	}
	return strings.ToLower(host)
}

// matchAny reports bidirectional substring containment between the
// domain and any list entry. This catches subdomains in both
// directions ("news.bbc.co.uk" vs "bbc.co.uk").
func matchAny(domain string, list []string) bool {
	if domain == "" {
		return false
	}
	for _, entry := range list {
		if strings.Contains(domain, entry) || strings.Contains(entry, domain) {
			return true
		}
	}
	return false
}
