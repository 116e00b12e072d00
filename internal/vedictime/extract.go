package vedictime

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxLocationLength bounds the length, in characters, of an accepted location line.
const MaxLocationLength = 60

var (
	clockPattern    = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
	locationPattern = regexp.MustCompile(`^[\p{L}\s.'’()\-]+,[A-Z\s]{3,}$`)
)

// ExtractScript runs inside the rendered page and returns a PageText payload.
// The TreeWalker visits text nodes depth-first in document order.
const ExtractScript = `(() => {
  const body = document.body;
  if (!body) {
    return { textNodes: [], innerText: "" };
  }
  const walker = document.createTreeWalker(body, NodeFilter.SHOW_TEXT);
  const textNodes = [];
  let node;
  while ((node = walker.nextNode())) {
    const text = (node.textContent || "").trim();
    if (text) {
      textNodes.push(text);
    }
  }
  return { textNodes, innerText: body.innerText || "" };
})()`

// Extract finds the first clock reading and the first location-like line.
// The patterns mirror the upstream page's current rendering and will need
// updating when that markup changes.
func Extract(page PageText) Extraction {
	return Extraction{
		Time:     findClock(page.TextNodes),
		Location: findLocation(page.InnerText),
	}
}

func findClock(nodes []string) *string {
	for _, node := range nodes {
		text := strings.TrimSpace(node)
		if clockPattern.MatchString(text) {
			return &text
		}
	}
	return nil
}

func findLocation(innerText string) *string {
	for _, line := range strings.Split(innerText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || utf8.RuneCountInString(line) > MaxLocationLength {
			continue
		}
		if locationPattern.MatchString(line) {
			return &line
		}
	}
	return nil
}
