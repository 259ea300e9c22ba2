package prerender

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ExtractLinks returns the route paths referenced by anchor tags in an HTML
// body. Relative references are resolved against basePath; references that
// carry a scheme or host point off-site and are discarded, as are mailto:,
// tel: and fragment-only links. The result preserves document order and may
// contain duplicates; dedup happens at admission.
func ExtractLinks(basePath string, body []byte) []string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	base := &url.URL{Path: NormalizePath(basePath)}
	var links []string

	var walker func(*html.Node)
	walker = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				if p, ok := resolveHref(base, attr.Val); ok {
					links = append(links, p)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walker(c)
		}
	}
	walker(doc)

	return links
}

func resolveHref(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	// Anything with a scheme or host leaves the rendered site.
	if ref.Scheme != "" || ref.Host != "" {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Path == "" {
		return "", false
	}
	return NormalizePath(resolved.Path), true
}
