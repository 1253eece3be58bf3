package ledger

import (
	"strings"

	"github.com/Blue-Davinci/SmartSave/internal/data"
)

type rule struct {
	category string
	keywords []string
}

// rules are checked in order and the first match wins.
var rules = []rule{
	{category: "Food & Groceries", keywords: []string{"mcdonald", "deli", "lidl", "domino", "starbucks"}},
	{category: "Entertainment", keywords: []string{"bookstore", "concert", "gamestore", "cinema"}},
	{category: "Subscriptions", keywords: []string{"spotify", "netflix"}},
	// dpz is assumed to be a utility provider
	{category: "Rent & Utilities", keywords: []string{"dpz", "monthlyren"}},
	{category: "Shopping", keywords: []string{"zara", "amazon", "amzn", "tech store"}},
	{category: "Transport", keywords: []string{"parking", "publicparkin", "parkinggar"}},
}

// Classify maps a bank description to an expense category.
func Classify(description string) string {
	lower := strings.ToLower(description)
	for _, r := range rules {
		for _, keyword := range r.keywords {
			if strings.Contains(lower, keyword) {
				return r.category
			}
		}
	}
	return data.CategoryOther
}
