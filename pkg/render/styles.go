package render

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// InjectStyles parses the document with a forgiving HTML parser, appends a
// <style> element holding css to <head>, and serializes it back. The parser
// synthesizes <html>/<head>/<body> for fragments, so there is always a head
// to append to. With an empty css the input is returned untouched.
func InjectStyles(html, css string) (string, error) {
	if css == "" {
		return html, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("head").First().AppendHtml("<style>\n" + css + "\n</style>")

	return doc.Html()
}
