package assistant

import (
	"fmt"
	"strings"

	"github.com/Blue-Davinci/SmartSave/internal/data"
)

// NoDataSummary is sent in place of a summary when nothing has been loaded.
const NoDataSummary = "No financial data available."

// RecentTransactionLimit caps the expenses listed in a summary.
const RecentTransactionLimit = 30

// BuildFinancialSummary renders the plain-text context handed to the model.
func BuildFinancialSummary(c data.Collections, periodMonths int) string {
	if c.Empty() {
		return NoDataSummary
	}
	s := data.Summarize(c, periodMonths)

	var b strings.Builder
	fmt.Fprintf(&b, "FINANCIAL SUMMARY (Last %d months):\n", periodMonths)
	fmt.Fprintf(&b, "- Total Income: %s\n", data.FormatCurrency(s.TotalIncome))
	fmt.Fprintf(&b, "- Total Expenses: %s\n", data.FormatCurrency(s.TotalExpenses))
	fmt.Fprintf(&b, "- Net Savings: %s\n", data.FormatCurrency(s.NetSavings))
	fmt.Fprintf(&b, "- Monthly Average Income: %s\n", data.FormatCurrency(s.MonthlyAverageIncome))
	fmt.Fprintf(&b, "- Monthly Average Expenses: %s\n", data.FormatCurrency(s.MonthlyAverageExpenses))

	b.WriteString("\nSPENDING BY CATEGORY:\n")
	for _, agg := range data.AggregateByCategory(c.Expenses) {
		fmt.Fprintf(&b, "%s: %s (%d transactions)\n", agg.Category, data.FormatCurrency(agg.Total), agg.Count)
	}

	recent := c.Expenses
	if len(recent) > RecentTransactionLimit {
		recent = recent[:RecentTransactionLimit]
	}
	items := make([]string, 0, len(recent))
	for _, tx := range recent {
		items = append(items, fmt.Sprintf("%s (%s): %s", tx.Description, tx.Category, data.FormatCurrency(tx.Amount)))
	}
	fmt.Fprintf(&b, "\nRECENT TRANSACTIONS: %s\n", strings.Join(items, ", "))
	return b.String()
}

// BuildPrompt wraps the summary and the user's question into the user prompt.
func BuildPrompt(summary, question string) string {
	return fmt.Sprintf(`You are a helpful financial assistant analyzing the user's spending data. Here's their financial summary:

%s

User question: %s

Please provide a helpful, specific answer based on their actual financial data. Use exact amounts and be conversational. If referring to amounts, format them as €X.XX. Keep responses concise but informative.`, summary, question)
}
