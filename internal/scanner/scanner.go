// Package scanner extracts candidate stories from a front-page document.
//
// The page is a flat sequence of table rows alternating between an item row
// (class "athing") and a metadata row belonging to the item immediately
// before it. Scan walks the rows in document order with a single row of
// lookahead: an item row opens a candidate, the very next row closes it with
// the author and action links. An item row with no following metadata row
// (or two item rows back to back) leaves a dangling candidate, which is
// dropped: without the metadata row there is no author to judge and no hide
// link to act on.
package scanner

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"hn_cleanser/internal/model"
)

// Scan parses one front-page document into stories in document order.
// Malformed markup never panics; rows that do not fit the item/metadata
// alternation are skipped.
func Scan(pageHTML string) ([]model.Story, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var stories []model.Story
	var open *model.Story

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if row.HasClass("athing") {
			// A second item row while one is open drops the dangling candidate.
			st := model.Story{
				ID:     row.AttrOr("id", ""),
				Title:  model.UntitledTitle,
				Link:   model.MissingLink,
				Source: model.SelfPostSource,
			}
			if a := row.Find("span.titleline > a").First(); a.Length() > 0 {
				st.Title = a.Text()
				st.Link = a.AttrOr("href", model.MissingLink)
			}
			if site := row.Find("span.sitestr").First(); site.Length() > 0 {
				st.Source = site.Text()
			}
			open = &st
			return
		}

		if open == nil {
			return
		}
		st := *open
		open = nil

		st.User = model.AnonymousAuthor
		if u := row.Find("a.hnuser").First(); u.Length() > 0 {
			st.User = u.Text()
		} else {
			// No author link on the metadata row means a sponsored placement.
			st.IsAd = true
		}

		row.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if strings.TrimSpace(a.Text()) == "hide" {
				st.HideHref = a.AttrOr("href", "")
				return false
			}
			return true
		})

		stories = append(stories, st)
	})

	return stories, nil
}
