package report

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"hn_cleanser/internal/model"
)

// The digest mimics the front page's own look so the report reads like the
// feed the stories were removed from.
const digestTemplate = `<html op="news">
<head>
    <meta name="referrer" content="origin">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body  { font-family:Verdana, Geneva, sans-serif; font-size:10pt; color:#828282; background-color:#f6f6ef; }
        td    { font-family:Verdana, Geneva, sans-serif; font-size:10pt; color:#828282; }
        .title   { font-size:10pt; padding-left:5px; padding-right:5px; }
        .subtext { font-size:7pt; padding-left:5px; }
        .pagetop { font-size:10pt; color:#222222; }
        .rank    { color:#828282; }
        .spacer  { height:6px; }
        a:link    { color:#000000; text-decoration:none; }
        a:visited { color:#828282; text-decoration:none; }
    </style>
    <title>{{.Title}}</title>
</head>
<body>
<center>
<table border="0" cellpadding="0" cellspacing="0" width="85%" bgcolor="#f6f6ef">
    <tr>
        <td bgcolor="#ff6600">
            <table border="0" cellpadding="0" cellspacing="0" width="100%" style="padding:2px">
                <tr>
                    <td style="line-height:12pt; height:10px;"><span class="pagetop"><b>Hacker News Cleanser</b></span></td>
                    <td style="text-align:right;padding-right:4px;"><span class="pagetop">
                        <a href="{{.BaseURL}}/user?id={{.Username}}">{{.Username}}</a> ({{.Total}} stories cleansed, {{len .Stories}} this period)</span></td>
                </tr>
            </table>
        </td>
    </tr>
    <tr style="height:10px"></tr>
    <tr>
        <td>
            <table border="0" cellpadding="0" cellspacing="0" class="itemlist">
{{- range .Stories}}
                <tr class="athing">
                    <td align="right" valign="top" class="title"><span class="rank">&#8226;</span></td>
                    <td class="title"><a href="{{.Link}}">{{.Title}}</a>{{if .Source}} <span class="comhead">({{.Source}})</span>{{end}}</td>
                </tr>
                <tr>
                    <td></td>
                    <td class="subtext">shared by <a href="{{$.BaseURL}}/user?id={{.User}}">{{.User}}</a>, hidden {{.HiddenAt}} ({{.CleansedBy}})</td>
                </tr>
                <tr class="spacer"></tr>
{{- end}}
            </table>
        </td>
    </tr>
</table>
</center>
</body>
</html>
`

var digestTmpl = template.Must(template.New("digest").Parse(digestTemplate))

type digestStory struct {
	Title      string
	Link       string
	Source     string
	User       string
	CleansedBy string
	HiddenAt   string
}

type digestData struct {
	Title    string
	BaseURL  string
	Username string
	Total    int64
	Stories  []digestStory
}

func renderDigest(title, username string, items []model.CleansedItem, total int64) (string, error) {
	data := digestData{
		Title:    title,
		BaseURL:  "https://news.ycombinator.com",
		Username: username,
		Total:    total,
		Stories:  make([]digestStory, 0, len(items)),
	}
	for _, item := range items {
		source := item.Source
		if source == model.SelfPostSource {
			source = ""
		}
		data.Stories = append(data.Stories, digestStory{
			Title:      item.Title,
			Link:       item.Link,
			Source:     source,
			User:       item.User,
			CleansedBy: item.CleansedBy,
			HiddenAt:   time.UnixMilli(item.HideTime).Format("Jan 2 15:04"),
		})
	}

	var b strings.Builder
	if err := digestTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return b.String(), nil
}
