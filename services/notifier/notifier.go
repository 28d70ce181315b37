package notifier

import (
	"context"
	"fmt"
	"strings"

	"youngcheol/moneyhunter/internal/classify"
	"youngcheol/moneyhunter/services/store"
)

// Notifier delivers a newly ingested deal to the downstream channel.
// The pipeline only needs delivery confirmation so it can mark is_sent.
type Notifier interface {
	Notify(ctx context.Context, deal store.Deal, tags []classify.Tag, siteLabel string) error
}

// FormatDealMessage renders a deal as the notification message body
func FormatDealMessage(deal store.Deal, tags []classify.Tag, siteLabel string) string {
	price := "정보 없음"
	if deal.Price != nil && *deal.Price != "" {
		price = *deal.Price
	}

	header := fmt.Sprintf("[🔥 %s]", siteLabel)
	if len(tags) > 0 {
		parts := make([]string, len(tags))
		for i, t := range tags {
			parts[i] = fmt.Sprintf("[%s]", t)
		}
		header = header + " " + strings.Join(parts, " ")
	}

	return fmt.Sprintf("%s\n제목: %s\n가격: %s\n링크: %s", header, deal.Title, price, deal.URL)
}
