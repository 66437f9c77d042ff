package agent

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
@page { size: A4; margin: 20px; }
body { font-family: Georgia, serif; color: #222; line-height: 1.5; margin: 0; }
h1, h2, h3 { font-family: Helvetica, Arial, sans-serif; color: #7a2e0e; }
table { border-collapse: collapse; width: 100%%; }
td, th { border: 1px solid #ccc; padding: 4px 8px; }
</style>
</head>
<body>
%s
</body>
</html>
`

// RenderNoteHTML converts a markdown note into a printable HTML document.
func RenderNoteHTML(title, note string) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(note), &body); err != nil {
		return "", fmt.Errorf("render note markdown: %w", err)
	}
	return fmt.Sprintf(documentTemplate, html.EscapeString(title), body.String()), nil
}
