package forum

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/colthorp/threadsum-go/internal/core"
	"golang.org/x/net/html"
)

// Selectors for XenForo-style thread markup.
const (
	PostSelector     = "article.message"
	TimeSelector     = "time.u-dt"
	TimeAttr         = "datetime"
	BodySelector     = ".message-content .bbWrapper"
	BodyFallback     = ".bbWrapper"
	PageNavSelector  = ".pageNav-main"
	PageLinkSelector = "li.pageNav-page a[href]"
)

// blockElements end the current line when flattening a post body.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true, "figure": true,
	"footer": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "ol": true, "p": true, "pre": true,
	"section": true, "table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// skippedElements never contribute text.
var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// ExtractMessages returns the posts found in a parsed page, in markup order.
// Posts whose flattened body is empty are dropped.
func ExtractMessages(doc *goquery.Selection) []Message {
	messages := make([]Message, 0)
	doc.Find(PostSelector).Each(func(_ int, post *goquery.Selection) {
		body := post.Find(BodySelector).First()
		if body.Length() == 0 {
			body = post.Find(BodyFallback).First()
		}
		if body.Length() == 0 {
			return
		}
		msg, err := NewMessage(postDate(post), FlattenText(body))
		if err != nil {
			return
		}
		messages = append(messages, msg)
	})
	return messages
}

// postDate prefers the machine-readable datetime attribute, then the displayed text.
func postDate(post *goquery.Selection) string {
	t := post.Find(TimeSelector).First()
	if t.Length() == 0 {
		return core.UnknownDate
	}
	if v, ok := t.Attr(TimeAttr); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if text := strings.TrimSpace(t.Text()); text != "" {
		return text
	}
	return core.UnknownDate
}

// FlattenText renders a selection as plain text with one line per block.
// Lines are trimmed and blank lines are dropped.
func FlattenText(sel *goquery.Selection) string {
	var sb strings.Builder
	for _, n := range sel.Nodes {
		flatten(n, &sb)
	}
	var lines []string
	for _, line := range strings.Split(sb.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func flatten(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
	case html.CommentNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		sb.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flatten(c, sb)
	}
	if block {
		sb.WriteString("\n")
	}
}

// PageLinkTexts returns the trimmed texts of the page-number links in the
// navigation control, and false when the page has no navigation control.
func PageLinkTexts(doc *goquery.Selection) ([]string, bool) {
	nav := doc.Find(PageNavSelector).First()
	if nav.Length() == 0 {
		return nil, false
	}
	texts := make([]string, 0)
	nav.Find(PageLinkSelector).Each(func(_ int, a *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(a.Text()))
	})
	return texts, true
}

// ResolvePageCount decides the total page count from page-link texts.
//
// The last link wins when it is a plain integer; otherwise (e.g. "Next") the
// second-to-last link is used when it is a plain integer; anything else means 1.
// Unexpected link text therefore silently yields a single page.
func ResolvePageCount(linkTexts []string) int {
	n := len(linkTexts)
	if n == 0 {
		return 1
	}
	if v, ok := plainInt(linkTexts[n-1]); ok {
		return v
	}
	if n > 1 {
		if v, ok := plainInt(linkTexts[n-2]); ok {
			return v
		}
	}
	return 1
}

// PageCount resolves the page count of a parsed first page.
func PageCount(doc *goquery.Selection) int {
	texts, ok := PageLinkTexts(doc)
	if !ok {
		return 1
	}
	return ResolvePageCount(texts)
}

// plainInt accepts only ASCII digit strings. Values above core.MaxThreadPages
// are clamped to it.
func plainInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil || v > core.MaxThreadPages {
		// Only overflow can fail here: s is all digits.
		return core.MaxThreadPages, true
	}
	if v < 1 {
		return 0, false
	}
	return v, true
}
