package shell

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Config is the client configuration carried in the page's app-config meta
// tag.
type Config struct {
	APIBase              string          `json:"apiBase"`
	SiteName             string          `json:"siteName"`
	Currency             string          `json:"currency"`
	CurrencySymbol       string          `json:"currencySymbol"`
	Language             string          `json:"language"`
	Theme                string          `json:"theme"`
	Debug                bool            `json:"debug"`
	EnableAjaxNavigation bool            `json:"enableAjaxNavigation"`
	Features             map[string]bool `json:"features,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		APIBase:        "/api",
		SiteName:       "VOGUE ÉLITE",
		Currency:       "€",
		CurrencySymbol: "€",
		Language:       "ru",
		Theme:          "dark-nude",
	}
}

// Feature reports whether a named feature flag is on.
func (c Config) Feature(name string) bool {
	return c.Features[name]
}

var errNoConfig = errors.New("shell: no app-config meta tag")

// ParseConfig overlays the JSON in the page's <meta name="app-config"> onto
// base. Unknown keys are ignored; on any error base is returned unchanged.
func ParseConfig(page string, base Config) (Config, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return base, fmt.Errorf("parse page: %w", err)
	}
	var content string
	found := false
	walk(doc, func(n *html.Node) bool {
		if found {
			return false
		}
		if n.Type == html.ElementNode && n.Data == "meta" && getAttr(n, "name") == "app-config" {
			content = getAttr(n, "content")
			found = true
			return false
		}
		return true
	})
	if !found {
		return base, errNoConfig
	}
	cfg := base
	if err := json.Unmarshal([]byte(content), &cfg); err != nil {
		return base, fmt.Errorf("decode app-config: %w", err)
	}
	return cfg, nil
}

// Page is the result of an in-place navigation.
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	// Main is the inner HTML of the page's <main> element.
	Main string `json:"main,omitempty"`
	// Anchor is set for in-page links; nothing is fetched.
	Anchor string `json:"anchor,omitempty"`
	// FullReload asks the client to load URL itself.
	FullReload bool `json:"fullReload,omitempty"`
}

// extractPage pulls the title and the inner HTML of <main> out of page.
func extractPage(page string) (title, main string, err error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", "", fmt.Errorf("parse page: %w", err)
	}
	var mainNode *html.Node
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch n.Data {
		case "title":
			if title == "" {
				title = strings.TrimSpace(textOf(n))
			}
		case "main":
			if mainNode == nil {
				mainNode = n
			}
			return false
		}
		return true
	})
	if mainNode == nil {
		return title, "", errors.New("shell: page has no <main>")
	}
	var buf bytes.Buffer
	for c := mainNode.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", "", fmt.Errorf("render main: %w", err)
		}
	}
	return title, buf.String(), nil
}

// walk visits n depth-first; visit returns false to skip a node's children.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
