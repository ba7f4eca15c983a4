package llm

// DefaultPrompt is the user instruction sent with each page when the
// caller supplies none.
const DefaultPrompt = "Convert this document to markdown"

// systemPrompt fixes the conversion rules for every page exchange.
const systemPrompt = `Convert the following document to markdown.
Return only the markdown with no explanation text. Do not include delimiters like ` + "```markdown or ```html." + `

RULES:
  - You must include all information on the page. Do not exclude headers, footers, or subtext.
  - Return tables in an HTML format.
  - Charts & infographics must be interpreted to a markdown format. Prefer table format when applicable.
  - Logos should be wrapped in brackets. Ex: <logo>Coca-Cola<logo>
  - Watermarks should be wrapped in brackets. Ex: <watermark>OFFICIAL COPY<watermark>
  - Page numbers should be wrapped in brackets. Ex: <page_number>14<page_number> or <page_number>9/22<page_number>
  - Prefer using ☐ and ☑ for check boxes.`
