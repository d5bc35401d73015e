package view

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ragchat/chatstream/transcript"
	"github.com/ragchat/chatstream/wire"
)

// RenderHTML renders a transcript to sanitized HTML. Message and thinking
// text is treated as markdown; sql parts are fenced before conversion so
// they come out as code blocks; references and errors are rendered as plain
// escaped sections.
func RenderHTML(t *transcript.Transcript) string {
	var sb strings.Builder
	for _, msg := range t.Messages {
		role := "ai"
		if msg.Role == wire.RoleHuman {
			role = "human"
		}
		fmt.Fprintf(&sb, `<div class="message message-%s">`+"\n", role)
		for _, p := range msg.Parts {
			renderPartHTML(&sb, p)
		}
		sb.WriteString("</div>\n")
	}
	return sb.String()
}

func renderPartHTML(sb *strings.Builder, p *transcript.Part) {
	switch p.Type {
	case wire.TypeMessage, wire.TypeThinking, wire.TypeToolCallResult:
		if p.Text == "" {
			return
		}
		fmt.Fprintf(sb, `<section class="part part-%s">%s</section>`+"\n", p.Type, renderMarkdown(p.Text))
	case wire.TypeSQL:
		if p.Text == "" {
			return
		}
		fenced := "```sql\n" + p.Text + "\n```"
		fmt.Fprintf(sb, `<section class="part part-sql">%s</section>`+"\n", renderMarkdown(fenced))
	case wire.TypeReferences:
		if len(p.References) == 0 {
			return
		}
		sb.WriteString(`<section class="part part-references"><ul>` + "\n")
		for _, ref := range p.References {
			fmt.Fprintf(sb, `<li data-score="%.4f">%s</li>`+"\n",
				ref.Score, template.HTMLEscapeString(ref.Text))
		}
		sb.WriteString("</ul></section>\n")
	case wire.TypeError:
		fmt.Fprintf(sb, `<section class="part part-error">%s</section>`+"\n",
			template.HTMLEscapeString(p.Text))
	}
}

// renderMarkdown converts markdown to HTML and sanitizes the result before
// declaring it safe.
func renderMarkdown(src string) string {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(src))

	htmlFlags := html.CommonFlags | html.HrefTargetBlank
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
	out := markdown.Render(doc, renderer)

	sanitizer := bluemonday.UGCPolicy()
	return string(sanitizer.SanitizeBytes(out))
}
