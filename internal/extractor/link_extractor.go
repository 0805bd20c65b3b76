package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aleister1102/linkscout/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// textURLPattern finds bare http(s) URLs in text content
var textURLPattern = regexp.MustCompile("https?://[^\\s<>\"'`]+")

// trailingPunctuation is stripped from URLs found in running text
const trailingPunctuation = ".,;)"

// skippedTextParents hold text that is never shown as page content
var skippedTextParents = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// anchorSelector covers link-bearing elements
const anchorSelector = "a[href], area[href]"

// Matcher decides whether a URL points at a supported hoster
type Matcher interface {
	Match(url string) bool
}

// LinkExtractor finds magnet and hoster links in a parsed document
type LinkExtractor struct {
	logger zerolog.Logger
}

// New creates a LinkExtractor
func New(logger zerolog.Logger) *LinkExtractor {
	return &LinkExtractor{
		logger: logger.With().Str("component", "LinkExtractor").Logger(),
	}
}

// Extract returns the magnet and hoster links of doc in discovery order. Anchors
// are read before free text, and each URL appears at most once. base resolves
// relative hrefs and may be nil.
func (e *LinkExtractor) Extract(doc *goquery.Document, base *url.URL, matcher Matcher) []models.DetectedLink {
	if doc == nil {
		return []models.DetectedLink{}
	}

	run := &extraction{
		matcher: matcher,
		seen:    make(map[string]struct{}),
		links:   make([]models.DetectedLink, 0, 16),
	}

	base = documentBase(doc, base)
	anchors := run.anchorPass(doc, base)
	texts := run.textPass(doc)

	e.logger.Debug().
		Int("from_anchors", anchors).
		Int("from_text", texts).
		Msg("Link extraction finished")

	return run.links
}

type extraction struct {
	matcher Matcher
	seen    map[string]struct{}
	links   []models.DetectedLink
}

func (x *extraction) anchorPass(doc *goquery.Document, base *url.URL) int {
	before := len(x.links)

	doc.Find(anchorSelector).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || hasPrefixFold(href, "javascript:") {
			return
		}

		link := resolve(base, href)
		if x.markSeen(link) {
			return
		}

		if hasPrefixFold(link, "magnet:") {
			x.links = append(x.links, models.DetectedLink{
				URL:  link,
				Host: models.MagnetHost,
				Type: models.LinkTypeMagnet,
			})
			return
		}
		x.addIfHoster(link)
	})

	return len(x.links) - before
}

func (x *extraction) textPass(doc *goquery.Document) int {
	before := len(x.links)

	for _, root := range doc.Nodes {
		walkText(root, func(text string) {
			for _, found := range textURLPattern.FindAllString(text, -1) {
				link := strings.TrimRight(found, trailingPunctuation)
				if x.markSeen(link) {
					continue
				}
				x.addIfHoster(link)
			}
		})
	}

	return len(x.links) - before
}

func (x *extraction) addIfHoster(link string) {
	if x.matcher == nil || !x.matcher.Match(link) {
		return
	}
	x.links = append(x.links, models.DetectedLink{
		URL:  link,
		Host: HostOf(link),
		Type: models.LinkTypeHoster,
	})
}

// markSeen records link and reports whether it had already been seen
func (x *extraction) markSeen(link string) bool {
	if _, ok := x.seen[link]; ok {
		return true
	}
	x.seen[link] = struct{}{}
	return false
}

func walkText(n *html.Node, visit func(string)) {
	switch n.Type {
	case html.TextNode:
		visit(n.Data)
		return
	case html.ElementNode:
		if skippedTextParents[strings.ToLower(n.Data)] {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, visit)
	}
}

// HostOf returns the display host of a link: its hostname without a leading
// "www.", or "unknown" when the URL has none.
func HostOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return models.UnknownHost
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return models.UnknownHost
	}
	return host
}

// documentBase applies a <base href> element on top of the document URL
func documentBase(doc *goquery.Document, base *url.URL) *url.URL {
	if base == nil {
		base = doc.Url
	}
	href, ok := doc.Find("base[href]").First().Attr("href")
	if !ok {
		return base
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return base
	}
	if base == nil {
		if ref.IsAbs() {
			return ref
		}
		return nil
	}
	return base.ResolveReference(ref)
}

// resolve makes a relative href absolute. Absolute hrefs are returned untouched
// so their identity is preserved byte for byte.
func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil || ref.IsAbs() || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
