package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
<html><body>
<p>Intro paragraph before any heading.</p>
<h2>Problem</h2>
<p>Systems duplicate state across stores.</p>
<h2>Solution</h2>
<p>Run a coordinator that stages every write.</p>
<ul><li>stage</li><li>commit</li></ul>
<h2>Trade-offs</h2>
<p>More moving parts, slower writes.</p>
<script>ignore();</script>
</body></html>`

func TestExtractText(t *testing.T) {
	text := ExtractText(sampleDoc)

	assert.Contains(t, text, "Intro paragraph before any heading.")
	assert.Contains(t, text, "Systems duplicate state across stores.")
	assert.NotContains(t, text, "ignore()")
	assert.NotContains(t, text, "<p>")
}

func TestImageRefs(t *testing.T) {
	doc := `<div>
		<img src="/assets/diagram-1.png">
		<img src="/assets/favicon-icon.png">
		<img src="/assets/diagram-2.png">
		<img>
		<img src="/assets/diagram-3.png">
	</div>`

	refs := ImageRefs(doc, 2)
	require.Len(t, refs, 2)
	assert.Equal(t, "/assets/diagram-1.png", refs[0])
	assert.Equal(t, "/assets/diagram-2.png", refs[1], "icon images and empty src are skipped")

	all := ImageRefs(doc, 0)
	assert.Len(t, all, 3)
}

func TestSplitSections(t *testing.T) {
	sections := SplitSections(sampleDoc, 1)
	require.Len(t, sections, 4)

	assert.Equal(t, FallbackSectionName, sections[0].Name)
	assert.Contains(t, sections[0].Text, "Intro paragraph")

	assert.Equal(t, "Problem", sections[1].Name)
	assert.Equal(t, "Solution", sections[2].Name)
	assert.Contains(t, sections[2].Text, "stage")
	assert.Equal(t, "Trade-offs", sections[3].Name)
}

func TestSplitSectionsNoHeadings(t *testing.T) {
	sections := SplitSections("<p>Just one flat document.</p>", 1)
	require.Len(t, sections, 1)
	assert.Equal(t, FallbackSectionName, sections[0].Name)
	assert.Equal(t, "Just one flat document.", sections[0].Text)
}

func TestSplitSectionsMinimumLength(t *testing.T) {
	doc := `<h2>Long</h2><p>` + strings.Repeat("x", 100) + `</p><h2>Short</h2><p>hi</p>`

	sections := SplitSections(doc, 50)
	require.Len(t, sections, 1)
	assert.Equal(t, "Long", sections[0].Name)
}

func TestSplitSectionsDuplicateHeadings(t *testing.T) {
	doc := `<h2>Notes</h2><p>first notes block</p><h2>Notes</h2><p>second notes block</p>`

	sections := SplitSections(doc, 1)
	require.Len(t, sections, 2)
	assert.Equal(t, "Notes", sections[0].Name)
	assert.Equal(t, "Notes (2)", sections[1].Name)
}

func TestExtractTextEmpty(t *testing.T) {
	assert.Equal(t, "", ExtractText(""))
	assert.Empty(t, SplitSections("", 1))
}
