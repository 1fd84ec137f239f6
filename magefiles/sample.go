//go:build mage

package main

// sampleRequest exercises every content block type.
const sampleRequest = `{
  "title": "A Sample IEEE Paper Generated from Structured Input",
  "authors": [
    {"name": "Ada Lovelace", "department": "Computing", "university": "Analytical Engines Inc.", "city": "London", "country": "UK", "email": "ada@example.org"},
    {"name": "Charles Babbage", "organization": "Difference Engine Lab", "email": "charles@example.org"}
  ],
  "abstract": "This paper demonstrates the generator: sections, subsections, tables, equations and references in IEEE two-column layout.",
  "keywords": "document generation, IEEE, DOCX, PDF",
  "sections": [
    {
      "title": "Introduction",
      "contentBlocks": [
        {"type": "text", "content": "Structured input keeps <b>formatting</b> consistent across <i>DOCX</i> and PDF [1].", "order": 0},
        {"type": "equation", "content": "E = mc^2", "equationNumber": "1", "order": 1}
      ],
      "subsections": [
        {"id": "s1", "level": 1, "title": "Motivation", "content": "Authors should not fight the template."},
        {"id": "s1a", "parentId": "s1", "level": 2, "title": "Scope", "content": "Only the IEEE conference format is covered."}
      ]
    },
    {
      "title": "Results",
      "contentBlocks": [
        {"type": "table", "tableType": "interactive", "caption": "Output formats", "headers": ["Format", "Engine"], "tableData": [["DOCX", "native"], ["PDF", "service or gofpdf"]]},
        {"type": "equation", "content": "\\alpha + \\beta \\leq \\frac{1}{2}", "equationNumber": "2"}
      ]
    }
  ],
  "references": [
    "IEEE, \"IEEE Editorial Style Manual,\" 2023.",
    {"text": "A. Lovelace, \"Notes on the Analytical Engine,\" 1843."}
  ]
}
`
