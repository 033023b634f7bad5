package main

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	siteBase          = "https://e-hentai.org"
	searchBase        = siteBase + "/?f_search="
	galleryPathMarker = "/g/"
	placeholderTitle  = "(no title)"
	pageSentinelID    = "PAGE"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// collapseSpace normalizes runs of whitespace to a single space and trims.
func collapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// entryID derives the stable identifier for an entry: the first 16 hex
// characters of the SHA-1 of the URL, falling back to the title when the URL
// could not be resolved.
func entryID(pageURL, title string) string {
	src := pageURL
	if src == "" {
		src = title
	}
	sum := sha1.Sum([]byte(src))
	return hex.EncodeToString(sum[:])[:16]
}

// absURL normalizes scheme-relative and root-relative references against the
// listing site's origin. Already-absolute URLs pass through unmodified apart
// from entity unescaping.
func absURL(base, src string) string {
	if src == "" {
		return ""
	}
	s := html.UnescapeString(strings.TrimSpace(src))
	if strings.HasPrefix(s, "//") {
		return "https:" + s
	}
	b, err := url.Parse(base)
	if err != nil {
		return s
	}
	ref, err := url.Parse(s)
	if err != nil {
		return s
	}
	return b.ResolveReference(ref).String()
}

// authorQueryURL builds the search URL for one author name.
func authorQueryURL(name string) string {
	return searchBase + url.QueryEscape(strings.TrimSpace(name))
}

// extractEntries parses one listing page into an ordered, deduplicated list
// of entries. With no result selector configured the page is reduced to a
// single sentinel entry so callers still get change detection via checksum.
// Malformed candidate nodes are skipped, never fatal.
func extractEntries(markup string, sel Selectors) []Entry {
	if strings.TrimSpace(sel.Result) == "" {
		return []Entry{{ID: pageSentinelID, Title: "Full page"}}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var entries []Entry
	doc.Find(sel.Result).Each(func(_ int, node *goquery.Selection) {
		if entry, ok := entryFromNode(node, sel); ok {
			entries = append(entries, entry)
		}
	})

	return dedupeEntries(entries)
}

func entryFromNode(node *goquery.Selection, sel Selectors) (Entry, bool) {
	anchor := findAnchor(node)
	if anchor == nil {
		return Entry{}, false
	}

	title := resolveTitle(node, anchor, sel.Title)
	if title == "" {
		title = placeholderTitle
	}
	pageURL := resolveURL(node, anchor, sel.Link)
	cover := resolveCover(node, anchor)

	return Entry{
		ID:    entryID(pageURL, title),
		Title: title,
		URL:   pageURL,
		Cover: cover,
	}, true
}

// findAnchor locates the gallery hyperlink for a candidate node: the node
// itself when it is an anchor into a gallery path, else the first descendant
// anchor whose target contains the gallery path marker.
func findAnchor(node *goquery.Selection) *goquery.Selection {
	if goquery.NodeName(node) == "a" {
		if href, ok := node.Attr("href"); ok && strings.Contains(href, galleryPathMarker) {
			return node
		}
	}
	anchor := node.Find(`a[href*="/g/"]`).First()
	if anchor.Length() == 0 {
		return nil
	}
	return anchor
}

// resolveTitle tries, in order: the configured title selector, descendants
// whose class or id names mention "title", and the anchor's own text.
func resolveTitle(node, anchor *goquery.Selection, titleSel string) string {
	if strings.TrimSpace(titleSel) != "" {
		if t := collapseSpace(node.Find(titleSel).First().Text()); t != "" {
			return t
		}
	}
	if t := collapseSpace(node.Find(`[class*="title"], [id*="title"]`).First().Text()); t != "" {
		return t
	}
	return collapseSpace(anchor.Text())
}

func resolveURL(node, anchor *goquery.Selection, linkSel string) string {
	raw := ""
	if strings.TrimSpace(linkSel) != "" {
		if href, ok := node.Find(linkSel).First().Attr("href"); ok {
			raw = href
		}
	}
	if raw == "" {
		raw, _ = anchor.Attr("href")
	}
	return absURL(siteBase, raw)
}

// coverResolver is one strategy for pulling a thumbnail URL out of a page
// region. Resolvers run in priority order; the first non-empty result wins.
type coverResolver func(region *goquery.Selection) string

var coverResolvers = []coverResolver{
	coverFromImages,
	coverFromNoscript,
	coverFromBackground,
}

// resolveCover searches a bounded neighborhood around the candidate node for
// a thumbnail: the node itself, its anchor, its parent, and the grandparent.
// Absence is not an error; the cover is simply empty.
func resolveCover(node, anchor *goquery.Selection) string {
	regions := []*goquery.Selection{node, anchor, node.Parent(), node.Parent().Parent()}
	for _, region := range regions {
		if region == nil || region.Length() == 0 {
			continue
		}
		for _, resolve := range coverResolvers {
			if u := resolve(region); u != "" && !strings.HasPrefix(u, "data:") {
				return absURL(siteBase, u)
			}
		}
	}
	return ""
}

// coverFromImages scans descendant images for a usable source.
func coverFromImages(region *goquery.Selection) string {
	found := ""
	region.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if u := imageSource(img); u != "" {
			found = u
			return false
		}
		return true
	})
	return found
}

// imageSource picks the real address from an <img>: lazy-load attributes
// first, then the highest-resolution srcset candidate, then a plain src that
// is not an inline-data placeholder.
func imageSource(img *goquery.Selection) string {
	for _, key := range []string{"data-src", "data-lazy", "data-original"} {
		if v, ok := img.Attr(key); ok && v != "" {
			return v
		}
	}
	if ss, ok := img.Attr("srcset"); ok && ss != "" {
		if u := lastSrcsetCandidate(ss); u != "" {
			return u
		}
	}
	if s, ok := img.Attr("src"); ok && s != "" && !strings.HasPrefix(s, "data:") {
		return s
	}
	return ""
}

// lastSrcsetCandidate returns the final srcset entry, conventionally the
// highest resolution.
func lastSrcsetCandidate(srcset string) string {
	var candidates []string
	for _, part := range strings.Split(srcset, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		candidates = append(candidates, strings.Fields(part)[0])
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[len(candidates)-1]
}

// coverFromNoscript re-parses noscript fallback blocks, which carry the real
// image tag on templates that lazy-load everything else.
func coverFromNoscript(region *goquery.Selection) string {
	found := ""
	region.Find("noscript").EachWithBreak(func(_ int, ns *goquery.Selection) bool {
		// The parser keeps noscript bodies as raw text, so Text() holds the
		// markup; Html() covers parsers that produced real elements.
		candidates := []string{ns.Text()}
		if inner, err := ns.Html(); err == nil {
			candidates = append(candidates, inner)
		}
		for _, inner := range candidates {
			if strings.TrimSpace(inner) == "" {
				continue
			}
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(inner))
			if err != nil {
				continue
			}
			img := doc.Find("img").First()
			if img.Length() == 0 {
				continue
			}
			if v, ok := img.Attr("data-src"); ok && v != "" {
				found = v
				return false
			}
			if v, ok := img.Attr("src"); ok && v != "" {
				found = v
				return false
			}
		}
		return true
	})
	return found
}

var backgroundImageURL = regexp.MustCompile(`(?i)url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// coverFromBackground extracts a thumbnail from inline background-image
// styles on the region or its container divs.
func coverFromBackground(region *goquery.Selection) string {
	if u := styleURL(region); u != "" {
		return u
	}
	found := ""
	region.Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		if u := styleURL(div); u != "" {
			found = u
			return false
		}
		return true
	})
	return found
}

func styleURL(sel *goquery.Selection) string {
	style, ok := sel.Attr("style")
	if !ok || style == "" {
		return ""
	}
	m := backgroundImageURL.FindStringSubmatch(style)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// dedupeEntries drops later duplicates by id, keeping first-seen order.
func dedupeEntries(entries []Entry) []Entry {
	if len(entries) == 0 {
		return entries
	}
	seen := make(map[string]struct{}, len(entries))
	uniq := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		uniq = append(uniq, e)
	}
	return uniq
}

// pageChecksum digests the page's visible text: scripts and styles stripped,
// whitespace collapsed. Used as an auxiliary change signal alongside the
// item-id diff.
func pageChecksum(markup string) string {
	text := collapseSpace(markup)
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup)); err == nil {
		doc.Find("script, style").Remove()
		text = collapseSpace(doc.Text())
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
