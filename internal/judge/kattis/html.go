package kattis

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	appErr "github.com/js-808/cc-cli/pkg/errors"
)

// extractCSRFToken pulls the hidden csrf_token input out of a form page.
func extractCSRFToken(page []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", appErr.Wrapf(err, appErr.LoginFormChanged, "parse form page failed")
	}
	var token string
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "input" {
			return true
		}
		if attr(n, "name") != "csrf_token" {
			return true
		}
		token = attr(n, "value")
		return false
	})
	if token == "" {
		return "", appErr.New(appErr.TokenExtractFailed)
	}
	return token, nil
}

// scrapeStatusFields extracts the status and runtime cells from a
// submission page. The page layout is judge-owned; unknown layouts yield
// an empty status, which the normalizer reports as Unknown rather than
// failing.
func scrapeStatusFields(page []byte) map[string]string {
	fields := map[string]string{}
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return fields
	}
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		if v := attr(n, "data-status"); v != "" && fields["status"] == "" {
			fields["status"] = v
		}
		classes := attr(n, "class")
		switch {
		case hasClass(classes, "status") && fields["status"] == "":
			fields["status"] = nodeText(n)
		case hasClass(classes, "runtime") && fields["cpu"] == "":
			fields["cpu"] = nodeText(n)
		}
		return true
	})
	return fields
}

func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasClass(classAttr, class string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == class {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return strings.TrimSpace(sb.String())
}
