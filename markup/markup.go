// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package markup

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/poiesic/triplex/core"
)

// FallbackSectionName is used when a document has no headings at all and is
// kept as a single section.
const FallbackSectionName = "Overview"

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"table": true, "ul": true, "ol": true, "blockquote": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

var headingTags = map[string]bool{
	"h1": true, "h2": true, "h3": true,
}

// ExtractText strips markup and returns the document's plain text with
// newline separators between block-level elements.
func ExtractText(markup string) string {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		// html.Parse only fails on reader errors; a string reader never errors.
		return ""
	}

	var sb strings.Builder
	collectText(root, &sb)
	return normalize(sb.String())
}

// ImageRefs returns the src attributes of the first max <img> tags in
// document order. Icon-style images are skipped since they carry no diagram
// content. max <= 0 means unbounded.
func ImageRefs(markup string, max int) []string {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var refs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if max > 0 && len(refs) >= max {
			return
		}
		if n.Type == html.ElementNode && n.Data == "img" {
			if src := attr(n, "src"); src != "" && !strings.Contains(strings.ToLower(src), "icon") {
				refs = append(refs, src)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return refs
}

// SplitSections splits a document into named sections by heading hierarchy
// (h1-h3). Content before the first heading, or the whole document when no
// headings exist, lands in the fallback section. Sections whose text is
// shorter than minLen are dropped. Duplicate heading names get a numeric
// suffix so every section stays individually addressable.
func SplitSections(markup string, minLen int) []core.Section {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	current := FallbackSectionName
	var buf strings.Builder
	var sections []core.Section
	seen := map[string]int{}

	flush := func() {
		text := normalize(buf.String())
		buf.Reset()
		if len(text) < minLen {
			return
		}
		name := current
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s (%d)", name, n)
		}
		sections = append(sections, core.Section{Name: name, Text: text})
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case headingTags[n.Data]:
				flush()
				var hb strings.Builder
				collectText(n, &hb)
				current = strings.TrimSpace(hb.String())
				if current == "" {
					current = FallbackSectionName
				}
				return // heading text is the name, not section content
			case n.Data == "script" || n.Data == "style":
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			buf.WriteString("\n")
		}
	}
	walk(root)
	flush()

	return sections
}

// collectText appends the text content of n and its children to sb,
// inserting newlines after block elements and skipping script/style.
func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
	if n.Type == html.ElementNode && blockTags[n.Data] {
		sb.WriteString("\n")
	}
}

// normalize collapses runs of whitespace-only lines and trims the result.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
