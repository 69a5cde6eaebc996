// CLAUDE:SUMMARY Renders resolution outcomes and original+alternatives responses as localized markdown.
package format

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/hazyhaar/dupefinder/pkg/catalog"
	"github.com/hazyhaar/dupefinder/pkg/i18n"
	"github.com/hazyhaar/dupefinder/pkg/resolve"
	"github.com/hazyhaar/dupefinder/pkg/store"
)

const (
	separator     = "---------------------"
	searchBaseURL = "https://www.google.com/search?q="
)

// Renderer turns outcomes into user-facing text.
type Renderer struct {
	msgs *i18n.Catalog
}

// New returns a Renderer over msgs (the embedded catalog when nil).
func New(msgs *i18n.Catalog) *Renderer {
	if msgs == nil {
		msgs = i18n.Default()
	}
	return &Renderer{msgs: msgs}
}

// Messages returns the message catalog in use.
func (r *Renderer) Messages() *i18n.Catalog { return r.msgs }

// Failure returns the message for a failed outcome, or "" for a success.
func (r *Renderer) Failure(out resolve.Outcome) string {
	if out.OK() {
		return ""
	}
	switch out.Reason {
	case resolve.ReasonEmptyQuery:
		return r.msgs.Message(i18n.KeyEmptyQuery, out.Lang)
	case resolve.ReasonBrandOnly:
		return r.msgs.Format(i18n.KeyBrandOnly, out.Lang, map[string]string{"brand_name": out.Brand})
	default:
		return r.msgs.Message(i18n.KeyNotFound, out.Lang)
	}
}

// Note returns the caveat text for note, or "" when there is none.
func (r *Renderer) Note(note resolve.Note, lang string) string {
	switch note {
	case resolve.NoteFuzzy:
		return r.msgs.Message(i18n.KeyFuzzyMatch, lang)
	case resolve.NoteCloneRedirect:
		return r.msgs.Message(i18n.KeyFoundByClone, lang)
	default:
		return ""
	}
}

// Outcome renders a full reply: the failure message, or the caveat (if any)
// followed by the original and its alternatives.
func (r *Renderer) Outcome(out resolve.Outcome, clones []store.Clone) string {
	if !out.OK() {
		return r.Failure(out)
	}
	body := r.Response(*out.Original, clones, out.Lang)
	if note := r.Note(out.Note, out.Lang); note != "" {
		return r.msgs.Message(i18n.KeyNotePrefix, out.Lang) + note + "\n\n" + body
	}
	return body
}

// Response renders an original with its clones, each with a search link.
func (r *Renderer) Response(o catalog.Original, clones []store.Clone, lang string) string {
	label := r.msgs.Message(i18n.KeySearchLinkLabel, lang)
	buy := r.msgs.Message(i18n.KeyBuyWord, lang)

	var b strings.Builder
	b.WriteString("**" + o.Display() + "** [" + label + "](" + SearchLink(buy, o.Brand, o.Name) + ")\n")
	b.WriteString(separator + "\n")

	if len(clones) == 0 {
		b.WriteString(r.msgs.Message(i18n.KeyNoCopies, lang) + "\n")
	}
	for _, c := range clones {
		var title string
		switch {
		case c.Brand != "" && c.Name != "":
			title = c.Brand + ": " + c.Name
		case c.Name != "":
			title = c.Name
		case c.Brand != "":
			title = c.Brand
		default:
			continue
		}
		b.WriteString("▪️ " + title + " [" + label + "](" + SearchLink(buy, c.Brand, c.Name) + ")\n")
		if line := r.priceLine(c, lang); line != "" {
			b.WriteString("   " + line + "\n")
		}
	}

	b.WriteString(separator + "\n")
	b.WriteString(r.msgs.Message(i18n.KeyFooter, lang))
	return b.String()
}

// Random renders a randomly picked original under the random title.
func (r *Renderer) Random(o catalog.Original, clones []store.Clone, lang string) string {
	return "**" + r.msgs.Message(i18n.KeyRandomTitle, lang) + "**\n\n" + r.Response(o, clones, lang)
}

// Popular renders the most requested originals as a numbered list.
func (r *Renderer) Popular(items []store.OriginalCount, lang string) string {
	if len(items) == 0 {
		return r.msgs.Message(i18n.KeyPopularEmpty, lang)
	}
	var b strings.Builder
	b.WriteString("**" + r.msgs.Message(i18n.KeyPopularTitle, lang) + "**\n\n")
	for i, it := range items {
		count := r.msgs.Format(i18n.KeyCountRequests, lang, map[string]string{"count": strconv.Itoa(it.Count)})
		b.WriteString(strconv.Itoa(i+1) + ". " + display(it.Brand, it.Name) + " (" + count + ")\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// History renders a user's past queries with what each resolved to.
func (r *Renderer) History(items []store.HistoryItem, lang string) string {
	if len(items) == 0 {
		return r.msgs.Message(i18n.KeyHistoryEmpty, lang)
	}
	var b strings.Builder
	b.WriteString("**" + r.msgs.Message(i18n.KeyHistoryTitle, lang) + "**\n\n")
	for _, it := range items {
		target := "*" + r.msgs.Message(i18n.KeyHistoryNotFound, lang) + "*"
		if it.Status == store.StatusOK && (it.Brand != "" || it.Name != "") {
			target = "**" + display(it.Brand, it.Name) + "**"
		}
		b.WriteString("▪️ " + it.Query + " → " + target + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func display(brand, name string) string {
	return strings.TrimSpace(brand + " " + name)
}

func (r *Renderer) priceLine(c store.Clone, lang string) string {
	if c.PriceEUR == nil && c.SavedAmount == nil {
		return ""
	}
	return r.msgs.Format(i18n.KeyPriceLine, lang, map[string]string{
		"price":        number(c.PriceEUR),
		"saved_amount": number(c.SavedAmount),
	})
}

func number(p *float64) string {
	if p == nil {
		return "?"
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

// SearchLink returns a web search URL for "<buyWord> <brand> <name> online".
func SearchLink(buyWord, brand, name string) string {
	q := strings.Join(strings.Fields(buyWord+" "+brand+" "+name+" online"), " ")
	return searchBaseURL + url.QueryEscape(q)
}
