package portal

import (
	"github.com/JonMunkholm/portal/internal/viewstate"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	keyPageSummary = "Page %d of %d (%d rows)"
	keyNoRows      = "No rows"
)

var summaries = newSummaryCatalog()

func newSummaryCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	must(b.SetString(language.Arabic, keyPageSummary, "صفحة %d من %d (%d سجل)"))
	must(b.SetString(language.Arabic, keyNoRows, "لا توجد سجلات"))
	must(b.SetString(language.English, keyPageSummary, keyPageSummary))
	must(b.SetString(language.English, keyNoRows, keyNoRows))
	return b
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// PageSummary renders the footer line of a table page in the given locale,
// with locale-aware digit grouping.
func PageSummary(tag language.Tag, page viewstate.Page) string {
	p := message.NewPrinter(tag, message.Catalog(summaries))
	if page.TotalItems == 0 {
		return p.Sprintf(keyNoRows)
	}
	return p.Sprintf(keyPageSummary, page.Number, page.TotalPages, page.TotalItems)
}
