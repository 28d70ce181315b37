package adapter

import (
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"youngcheol/moneyhunter/helpers"
	"youngcheol/moneyhunter/pkg/errors"
)

// commentCountRegex strips the trailing comment counter boards append to
// titles, e.g. "에어팟 프로 2 [13]".
var commentCountRegex = regexp.MustCompile(`\[\d+\]\s*$`)

// baseAdapter provides selector-driven extraction shared by both families
type baseAdapter struct {
	config     SourceConfig
	priceRegex *regexp.Regexp
}

func newBaseAdapter(config SourceConfig) baseAdapter {
	a := baseAdapter{config: config}
	if config.Selectors.PriceRegex != "" {
		a.priceRegex = regexp.MustCompile(config.Selectors.PriceRegex)
	}
	return a
}

// Name returns the source name
func (a *baseAdapter) Name() string {
	return a.config.Name
}

// ListingURL returns the listing page URL
func (a *baseAdapter) ListingURL() string {
	return a.config.URL
}

// document parses the page body, failing when the deal list selector matches
// nothing; a page without any listing rows is an error/login/blocked page,
// not an empty board.
func (a *baseAdapter) document(body io.Reader) (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, errors.NewParsing(a.config.Name, "failed to parse HTML document", err)
	}

	items := doc.Find(a.config.Selectors.ListItem)
	if items.Length() == 0 {
		return nil, errors.NewParsing(a.config.Name, "no listing rows matched; page structure changed or access blocked", nil)
	}
	return items, nil
}

// resolveURL converts a relative link to an absolute detail URL
func (a *baseAdapter) resolveURL(link string) string {
	link = strings.TrimSpace(link)
	if link == "" || strings.HasPrefix(link, "http") {
		return link
	}

	base, err := url.Parse(a.config.BaseURL)
	if err != nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}

// extractTitle pulls the title text for a row, preferring the title attribute
func (a *baseAdapter) extractTitle(s *goquery.Selection) string {
	titleSel := s.Find(a.config.Selectors.Title)
	if titleSel.Length() == 0 {
		return ""
	}

	var title string
	if titleAttr, exists := titleSel.First().Attr("title"); exists && titleAttr != "" {
		title = titleAttr
	} else {
		title = titleSel.First().Text()
	}

	title = commentCountRegex.ReplaceAllString(strings.TrimSpace(title), "")
	return strings.TrimSpace(title)
}

// extractLink pulls the detail-page URL for a row
func (a *baseAdapter) extractLink(s *goquery.Selection) string {
	linkSel := s.Find(a.config.Selectors.Link)
	if linkSel.Length() == 0 {
		return ""
	}

	link, exists := linkSel.First().Attr("href")
	if !exists {
		return ""
	}
	return a.resolveURL(link)
}

// extractPostedAt pulls the posted-time hint, if the page carries one
func (a *baseAdapter) extractPostedAt(s *goquery.Selection) string {
	if a.config.Selectors.PostedAt == "" {
		return ""
	}
	return strings.TrimSpace(s.Find(a.config.Selectors.PostedAt).First().Text())
}

// priceFromTitle extracts a price pattern from the title text
func (a *baseAdapter) priceFromTitle(title string) string {
	if a.priceRegex == nil {
		return ""
	}
	if match := a.priceRegex.FindString(title); match != "" {
		return strings.Trim(match, "([]) ")
	}
	return ""
}

// dealAdapter parses community board rows (ppomppu, fmkorea)
type dealAdapter struct {
	baseAdapter
}

// NewDealAdapter creates an adapter for a board-style deal source
func NewDealAdapter(config SourceConfig) Adapter {
	return &dealAdapter{baseAdapter: newBaseAdapter(config)}
}

// Parse extracts listings from a board page, top of the page first
func (a *dealAdapter) Parse(body io.Reader) ([]RawListing, error) {
	items, err := a.document(body)
	if err != nil {
		return nil, err
	}

	var listings []RawListing
	items.Each(func(_ int, s *goquery.Selection) {
		if a.config.Selectors.ClassFilter != "" && s.HasClass(a.config.Selectors.ClassFilter) {
			return
		}

		title := a.extractTitle(s)
		link := a.extractLink(s)
		if title == "" || link == "" {
			return
		}

		price := a.extractBoardPrice(s)
		if price == "" {
			price = a.priceFromTitle(title)
		}

		listings = append(listings, RawListing{
			SourceName: a.config.Name,
			Title:      title,
			URL:        link,
			Price:      price,
			PostedAt:   a.extractPostedAt(s),
		})
	})

	return listings, nil
}

// extractBoardPrice reads the price cell. FMKorea-style boards label it
// "가격:83,075원" inside an info block, so a labeled value wins over plain
// cell text.
func (a *dealAdapter) extractBoardPrice(s *goquery.Selection) string {
	if a.config.Selectors.Price == "" {
		return ""
	}

	var price string
	s.Find(a.config.Selectors.Price).EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		text := strings.TrimSpace(cell.Text())
		if strings.HasPrefix(text, "가격") && strings.Contains(text, ":") {
			if value, err := helpers.GetSplitPart(text, ":", 1); err == nil {
				price = strings.TrimSpace(value)
			}
			return false
		}
		return true
	})
	return price
}

// bottleAdapter parses merchant product shelves (dailyshot, cu)
type bottleAdapter struct {
	baseAdapter
}

// NewBottleAdapter creates an adapter for a shelf-style bottle source
func NewBottleAdapter(config SourceConfig) Adapter {
	return &bottleAdapter{baseAdapter: newBaseAdapter(config)}
}

// Parse extracts listings from a product shelf page, in shelf order
func (a *bottleAdapter) Parse(body io.Reader) ([]RawListing, error) {
	items, err := a.document(body)
	if err != nil {
		return nil, err
	}

	var listings []RawListing
	items.Each(func(_ int, s *goquery.Selection) {
		if a.config.Selectors.ClassFilter != "" && s.HasClass(a.config.Selectors.ClassFilter) {
			return
		}

		title := a.extractTitle(s)
		link := a.extractLink(s)
		if title == "" || link == "" {
			return
		}

		var price string
		if a.config.Selectors.Price != "" {
			price = strings.TrimSpace(s.Find(a.config.Selectors.Price).First().Text())
		}

		listings = append(listings, RawListing{
			SourceName: a.config.Name,
			Title:      title,
			URL:        link,
			Price:      price,
			PostedAt:   a.extractPostedAt(s),
		})
	})

	return listings, nil
}
