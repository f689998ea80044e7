package scraper

import (
	"net/url"
	"strings"
)

// linkResolver turns card hrefs into canonical absolute URLs on the site's
// own domains.
type linkResolver struct {
	base    *url.URL
	domains []string
}

func newLinkResolver(rules SiteRules) (*linkResolver, error) {
	base, err := url.Parse(rules.BaseURL)
	if err != nil {
		return nil, err
	}

	domains := make([]string, 0, len(rules.Domains))
	for _, d := range rules.Domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "."))
		if d != "" {
			domains = append(domains, d)
		}
	}

	return &linkResolver{base: base, domains: domains}, nil
}

// resolve returns the absolute form of href, or false when the link is
// malformed, not http(s), or points off-site. Fragments are dropped so the
// same article reached via different anchors dedupes to one URL.
func (l *linkResolver) resolve(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	var abs *url.URL
	switch {
	case strings.HasPrefix(href, "//"):
		// Protocol-relative: take the base scheme, then check the host.
		ref.Scheme = l.base.Scheme
		abs = ref
	case strings.HasPrefix(href, "/"):
		abs = l.base.ResolveReference(ref)
	default:
		abs = ref
	}

	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if !l.onSite(abs.Hostname()) {
		return "", false
	}

	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String(), true
}

func (l *linkResolver) onSite(host string) bool {
	host = strings.ToLower(host)
	for _, d := range l.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
