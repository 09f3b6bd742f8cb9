package tools

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"sort"
	"strings"

	md "github.com/russross/blackfriday/v2"

	"github.com/mwsobol/SORCER-sub002/core"
)

// describe renders a stored value for people.
func describe(v interface{}) string {
	switch vv := v.(type) {
	case *core.ContextLink:
		return vv.String()
	case *core.ScriptEvaluation:
		if s, is := vv.Source.(string); is {
			return s
		}
		js, err := json.MarshalIndent(vv.Source, "", "  ")
		if err != nil {
			return fmt.Sprintf("%#v", vv.Source)
		}
		return string(js)
	case core.Evaluation:
		return fmt.Sprintf("(%T)", v)
	}
	js, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(js)
}

// RenderContextHTML writes an HTML table of the context's local
// entries.  The description is rendered as Markdown.
func RenderContextHTML(c *core.ServiceContext, out io.Writer) error {
	var err error
	f := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(out, format+"\n", args...)
		}
	}

	f(`<div class="context">`)
	f(`<h2 class="contextName">%s</h2>`, html.EscapeString(c.Name()))
	if d := c.Description(); d != "" {
		f(`<div class="contextDoc doc">%s</div>`, md.Run([]byte(d)))
	}
	if c.IsModeling() {
		f(`<div class="modeling">modeling</div>`)
	}

	f(`<table class="entries">`)
	f(`<tr><th>path</th><th>value</th><th>dir</th><th>marks</th></tr>`)
	for _, p := range c.Paths() {
		v, _ := c.Value0(p)

		class := "value"
		switch v.(type) {
		case *core.ContextLink:
			class = "link"
		case core.Evaluation:
			class = "code"
		}

		marks := c.Marks(p)
		names := make([]string, 0, len(marks))
		for attr := range marks {
			if attr == core.DirectionAttr {
				continue
			}
			names = append(names, attr)
		}
		sort.Strings(names)
		ms := make([]string, 0, len(names))
		for _, attr := range names {
			ms = append(ms, html.EscapeString(attr+core.APS+marks[attr]))
		}

		f(`<tr class="entry"><td><span id="%s" class="path">%s</span></td>`,
			html.EscapeString(p), html.EscapeString(p))
		f(`<td class="%s"><pre>%s</pre></td>`, class, html.EscapeString(describe(v)))
		f(`<td class="dir">%s</td>`, c.Direction(p))
		f(`<td class="marks">%s</td></tr>`, strings.Join(ms, "<br/>"))
	}
	f(`</table>`)

	if rp := c.ReturnPath(); rp != nil {
		f(`<div class="returnPath">return: <span class="path">%s</span></div>`, html.EscapeString(rp.Path))
	}
	f(`</div>`)
	return err
}
