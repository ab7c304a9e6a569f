package realtime

import (
	"fmt"

	"github.com/dalemusser/solarhub/internal/app/store/docstore"
	"github.com/dalemusser/solarhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/solarhub/internal/domain/models"
)

// Message is the human-readable text of one notification.
type Message struct {
	Title       string
	Description string
}

// Format renders doc for category. ok is false for a category with no template.
func Format(category string, doc docstore.Record) (msg Message, ok bool) {
	switch category {
	case models.CategoryNewListing:
		name := htmlsanitize.OrDefault(doc.String("name"), "A new project")
		desc := fmt.Sprintf("%s is now open for investment at $%.2f per token.", name, doc.Float("token_price"))
		if loc := htmlsanitize.PlainText(doc.String("location")); loc != "" {
			desc = fmt.Sprintf("%s in %s is now open for investment at $%.2f per token.", name, loc, doc.Float("token_price"))
		}
		return Message{Title: "New project listed", Description: desc}, true

	case models.CategoryPurchase:
		name := htmlsanitize.OrDefault(doc.String("project_name"), "a project")
		return Message{
			Title:       "Purchase confirmed",
			Description: fmt.Sprintf("You bought %s of %s for $%.2f.", tokens(doc.Int("tokens")), name, doc.Float("amount")),
		}, true

	case models.CategorySale:
		name := htmlsanitize.OrDefault(doc.String("project_name"), "your project")
		return Message{
			Title:       "Tokens sold",
			Description: fmt.Sprintf("%s of %s sold for $%.2f.", tokens(doc.Int("tokens")), name, doc.Float("amount")),
		}, true
	}
	return Message{}, false
}

func tokens(n int64) string {
	if n == 1 {
		return "1 token"
	}
	return fmt.Sprintf("%d tokens", n)
}
