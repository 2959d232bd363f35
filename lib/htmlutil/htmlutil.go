package htmlutil

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("socialsync.lib.htmlutil")

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer, false)
	return buffer.String()
}

// invisible elements never contribute to rendered text
var invisible = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer, visibleOnly bool) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	if visibleOnly && node.Type == html.ElementNode && invisible[node.Data] {
		return
	}
	child := node.FirstChild
	for child != nil {
		// element boundaries separate words when rendered
		separate := visibleOnly && child.Type == html.ElementNode
		if separate {
			buffer.WriteByte(' ')
		}
		getTextRecursive(child, buffer, visibleOnly)
		if separate {
			buffer.WriteByte(' ')
		}
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText strips non-printable characters and collapses runs of whitespace.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// VisibleText returns the text a user would see in the document, script and style contents
// excluded.
func VisibleText(ctx context.Context, doc *goquery.Document) string {
	_, span := tracer.Start(ctx, "VisibleText")
	defer span.End()

	var buffer bytes.Buffer
	for _, n := range doc.Nodes {
		getTextRecursive(n, &buffer, true)
	}
	text := CleanText(buffer.String())
	span.SetAttributes(attribute.Int("length", len(text)))
	return text
}

// MetaContent returns the content attribute of the first <meta> tag whose property or name
// equals key.
func MetaContent(doc *goquery.Document, key string) string {
	var content string
	doc.Find("meta").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		property, _ := sel.Attr("property")
		name, _ := sel.Attr("name")
		if property != key && name != key {
			return true
		}
		content, _ = sel.Attr("content")
		return false
	})
	return strings.TrimSpace(content)
}
