package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/pevans/feedwatch/cache"
)

// ContentTypeHTML is the media type of HTML output.
const ContentTypeHTML = "text/html; charset=utf-8"

// CacheControl is the header value for rendered pages, matching the fetch
// cache freshness window for ttl (zero selects cache.DefaultTTL).
func CacheControl(ttl time.Duration) string {
	return fmt.Sprintf("public, max-age=%d", int(cache.NormalizeTTL(ttl).Seconds()))
}

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta http-equiv="X-UA-Compatible" content="IE=edge">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Feed Watch</title>
</head>
<body>
  <div class="content" style="max-width:900px;width:100%;margin:auto">
    <h1 style="margin-bottom:0">Aggregated RSS Feed Items</h1>
    <p style="margin-top:0">This page collects interesting posts from around the internet</p>
{{- if .Filtered}}
    <p class="filter"><em><strong>Filtering by tags:</strong> {{join .AllowedTags ", "}}</em></p>
{{- else}}
    <p class="vocabulary"><em><strong>Filterable tags:</strong>
    {{- range $i, $tag := .Vocabulary}}{{if $i}},{{end}} <a class="tag" href="/tag/{{$tag}}">{{$tag}}</a>{{end}}</em></p>
{{- end}}
    <hr>
    <div class="feed-items">
{{- range .ViewItems}}
      <div class="feed-item">
        <p style="border-left:0.25em solid lightgray;padding-left:0.5em">
          <strong><a href="{{.Link}}" target="_blank">{{.Title}}</a></strong> - <span class="subscription">{{.Subscription}}</span><br>
          <span class="published" style="color:gray">Published: {{.Date}}</span>
        </p>
      </div>
{{- end}}
    </div>
  </div>
</body>
</html>
`

var pageTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(indexTemplate))

// HTML writes page as a complete HTML document.
func HTML(w io.Writer, page Page) error {
	if err := pageTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}
