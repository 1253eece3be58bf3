package data

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	RecommendationFoodDelivery           = "food_delivery"
	RecommendationDuplicateSubscriptions = "duplicate_subscriptions"
	RecommendationGoalPace               = "goal_pace"
)

// Recommendation is a rule-based savings suggestion.
type Recommendation struct {
	Kind        string          `json:"kind"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Impact      string          `json:"impact"`
	Savings     decimal.Decimal `json:"potential_savings"`
	Services    []string        `json:"services,omitempty"`
	GoalID      string          `json:"goal_id,omitempty"`
}

// RecommendationOptions tunes the rules used by DetectRecommendations.
type RecommendationOptions struct {
	PeriodMonths          int
	FoodDeliveryVendors   []string
	FoodDeliveryThreshold int
	FoodDeliveryReduction decimal.Decimal
	SubscriptionCategory  string
	SubscriptionServices  []string
}

func DefaultRecommendationOptions() RecommendationOptions {
	return RecommendationOptions{
		PeriodMonths:          DefaultPeriodMonths,
		FoodDeliveryVendors:   []string{"domino", "mcdonald"},
		FoodDeliveryThreshold: 8,
		FoodDeliveryReduction: decimal.NewFromFloat(0.3),
		SubscriptionCategory:  "Subscriptions",
		SubscriptionServices:  []string{"spotify", "netflix"},
	}
}

// DetectRecommendations runs the food delivery, duplicate subscription and
// goal pace rules over the expenses and goals.
func DetectRecommendations(expenses []Transaction, goals []SavingsGoal, opts RecommendationOptions, now time.Time) []Recommendation {
	recommendations := []Recommendation{}
	if r, ok := foodDeliveryRecommendation(expenses, opts); ok {
		recommendations = append(recommendations, r)
	}
	if r, ok := duplicateSubscriptionRecommendation(expenses, opts); ok {
		recommendations = append(recommendations, r)
	}
	return append(recommendations, goalPaceRecommendations(goals, now)...)
}

func foodDeliveryRecommendation(expenses []Transaction, opts RecommendationOptions) (Recommendation, bool) {
	var matched []Transaction
	for _, tx := range expenses {
		if containsAny(tx.Description, opts.FoodDeliveryVendors) {
			matched = append(matched, tx)
		}
	}
	if len(matched) <= opts.FoodDeliveryThreshold {
		return Recommendation{}, false
	}
	potential := Total(matched).Mul(opts.FoodDeliveryReduction)
	return Recommendation{
		Kind:        RecommendationFoodDelivery,
		Title:       "Reduce Food Delivery",
		Description: fmt.Sprintf("You've ordered food delivery %d times in the last %d months.", len(matched), opts.PeriodMonths),
		Impact: fmt.Sprintf("Reducing by %s%% could save you %s over %d months.",
			opts.FoodDeliveryReduction.Mul(hundred).String(), FormatCurrency(potential), opts.PeriodMonths),
		Savings: potential,
	}, true
}

func duplicateSubscriptionRecommendation(expenses []Transaction, opts RecommendationOptions) (Recommendation, bool) {
	counts := make(map[string]int)
	totals := make(map[string]decimal.Decimal)
	for _, tx := range expenses {
		if tx.Category != opts.SubscriptionCategory {
			continue
		}
		description := strings.ToLower(tx.Description)
		for _, service := range opts.SubscriptionServices {
			if strings.Contains(description, service) {
				counts[service]++
				totals[service] = totals[service].Add(tx.Amount)
			}
		}
	}

	caser := cases.Title(language.English)
	var services []string
	savings := decimal.Zero
	for _, service := range opts.SubscriptionServices {
		count := counts[service]
		if count <= opts.PeriodMonths {
			continue
		}
		services = append(services, caser.String(service))
		// charges beyond one per month are treated as the duplicate
		average := DivideOrZero(totals[service], count)
		savings = savings.Add(average.Mul(decimal.NewFromInt(int64(count - opts.PeriodMonths))))
	}
	if len(services) == 0 {
		return Recommendation{}, false
	}
	return Recommendation{
		Kind:        RecommendationDuplicateSubscriptions,
		Title:       "Duplicate Subscriptions Detected",
		Description: fmt.Sprintf("You may have duplicate %s subscriptions.", strings.Join(services, ", ")),
		Impact:      "Review and cancel duplicates to save money.",
		Savings:     savings,
		Services:    services,
	}, true
}

func goalPaceRecommendations(goals []SavingsGoal, now time.Time) []Recommendation {
	var recommendations []Recommendation
	for _, goal := range goals {
		progress := GoalProgress(goal, now)
		if progress.Reached || progress.MonthsLeft <= 0 {
			continue
		}
		perMonth := DivideOrZero(progress.Remaining, progress.MonthsLeft).Round(2)
		recommendations = append(recommendations, Recommendation{
			Kind:        RecommendationGoalPace,
			Title:       fmt.Sprintf("Stay on track for %s", goal.Name),
			Description: fmt.Sprintf("Save %s per month to reach %s by %s.", FormatCurrency(perMonth), FormatCurrency(goal.TargetAmount), goal.Deadline),
			Impact:      fmt.Sprintf("%d months left, %s%% complete.", progress.MonthsLeft, progress.Percent.Round(1).String()),
			Savings:     perMonth,
			GoalID:      goal.ID,
		})
	}
	return recommendations
}

func containsAny(description string, needles []string) bool {
	description = strings.ToLower(description)
	for _, needle := range needles {
		if strings.Contains(description, needle) {
			return true
		}
	}
	return false
}
