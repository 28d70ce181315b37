package adapter

import (
	"fmt"

	"youngcheol/moneyhunter/config"
	"youngcheol/moneyhunter/pkg/errors"
)

// sourceConfigs defines the fixed source set. Selectors track each site's
// markup; the URLs come from configuration so a moved board only needs an
// env change.
func sourceConfigs(cfg *config.Config) []SourceConfig {
	return []SourceConfig{
		{
			// Ppomppu domestic hotdeal board (euc-kr)
			Name:    "ppomppu",
			Family:  FamilyDeal,
			Label:   "뽐뿌 핫딜",
			URL:     cfg.PpomURL,
			BaseURL: "https://www.ppomppu.co.kr/zboard/",
			Selectors: Selectors{
				ListItem:    "tr.baseList",
				Title:       "div.baseList-cover a.baseList-title",
				Link:        "div.baseList-cover a.baseList-title",
				PostedAt:    "time.baseList-time",
				PriceRegex:  `\d[\d,]*\s*원`,
				ClassFilter: "list_notice",
			},
		},
		{
			// FMKorea hotdeal board
			Name:    "fmkorea",
			Family:  FamilyDeal,
			Label:   "펨코 핫딜",
			URL:     cfg.FMKoreaURL,
			BaseURL: "https://www.fmkorea.com",
			Selectors: Selectors{
				ListItem:   "div.fm_best_widget li.li_best2_pop0",
				Title:      "h3.title a",
				Link:       "h3.title a",
				Price:      "div.hotdeal_info span",
				PostedAt:   "span.regdate",
				PriceRegex: `\d[\d,]*\s*원`,
			},
		},
		{
			// Dailyshot whisky special deals shelf
			Name:    "dailyshot",
			Family:  FamilyBottle,
			Label:   "데일리샷 특가",
			URL:     cfg.DailyshotURL,
			BaseURL: "https://dailyshot.co",
			Selectors: Selectors{
				ListItem:    "div.item-list div.item-card",
				Title:       "div.item-name",
				Link:        "a.item-link",
				Price:       "span.item-price",
				ClassFilter: "sold-out",
			},
		},
		{
			// CU convenience store liquor reservation shelf
			Name:    "cubar",
			Family:  FamilyBottle,
			Label:   "CU 주류",
			URL:     cfg.CUBarURL,
			BaseURL: "https://cu.bgfretail.com",
			Selectors: Selectors{
				ListItem:    "ul.prodListWrap li.prod_list",
				Title:       "div.prod_text p.name",
				Link:        "a.prod_item",
				Price:       "div.prod_text p.price",
				ClassFilter: "soldout",
			},
		},
	}
}

// New creates the adapter for a source config
func New(config SourceConfig) (Adapter, error) {
	switch config.Family {
	case FamilyDeal:
		return NewDealAdapter(config), nil
	case FamilyBottle:
		return NewBottleAdapter(config), nil
	default:
		return nil, errors.NewConfiguration(
			fmt.Sprintf("no adapter for source %q family %q", config.Name, config.Family), nil)
	}
}

// CreateSources builds the schedulable source set from the configuration.
// A source with a broken configuration is returned as an error and never
// scheduled; the remaining sources are unaffected.
func CreateSources(cfg *config.Config) ([]Source, []error) {
	var sources []Source
	var errs []error

	for _, sc := range sourceConfigs(cfg) {
		a, err := New(sc)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		interval := cfg.CrawlInterval
		if override := cfg.SourceIntervals[sc.Name]; override > 0 {
			interval = override
		}

		sources = append(sources, Source{
			Adapter:  a,
			Label:    sc.Label,
			Interval: interval,
		})
	}

	return sources, errs
}
