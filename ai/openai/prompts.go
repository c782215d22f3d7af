package openai

import "fmt"

const summaryPromptTemplate = `Summarize this document into a dense technical abstract (%d words).

Rules:
- Cover: Core Problem, Solution Logic, Key Technologies, and Trade-offs.
- Write flowing prose, not bullet points or headings.
- Keep every concrete technology, protocol, and product name from the text.
- Do not include any preamble, acknowledgment, or commentary; output the abstract only.
- If the text is too thin to summarize, still produce the best abstract you can from what is present.

TITLE: %s

TEXT:
%s`

const describePromptTemplate = `Describe this image in two or three sentences for a search index.

Rules:
- Name the type of diagram or picture (architecture diagram, flowchart, sequence diagram, screenshot, photo).
- List the major components, labels, and the relationships or flows between them.
- Do not speculate about anything not visible in the image.
- Output the description only, with no preamble.

The image is embedded in a document titled "%s".`

// buildSummaryPrompt creates the summarization prompt for a document.
func buildSummaryPrompt(maxWords int, title, text string) string {
	return fmt.Sprintf(summaryPromptTemplate, maxWords, title, text)
}

// buildDescribePrompt creates the image description prompt.
func buildDescribePrompt(contextText string) string {
	return fmt.Sprintf(describePromptTemplate, contextText)
}
