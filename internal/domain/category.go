package domain

import (
	"fmt"
	"strings"
)

// Category narrows the framework similarity view to one kind of topic.
type Category string

const (
	CategoryAll        Category = "all"
	CategoryGovernance Category = "governance"
	CategoryStrategy   Category = "strategy"
	CategoryRisk       Category = "risk"
	CategoryMetrics    Category = "metrics"
	CategoryDisclosure Category = "disclosure"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryAll, CategoryGovernance, CategoryStrategy, CategoryRisk, CategoryMetrics, CategoryDisclosure}

// ParseCategory accepts a category name case-insensitively. Empty and
// "all_metrics" mean CategoryAll.
func ParseCategory(s string) (Category, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "all_metrics":
		return CategoryAll, nil
	default:
		for _, c := range Categories {
			if Category(v) == c {
				return c, nil
			}
		}
	}
	return "", fmt.Errorf("unknown topic category %q (want one of %s)", s, joinCategories())
}

// Matches reports whether topic belongs to the category, judged by its id
// and name. Metrics also covers targets.
func (c Category) Matches(topic Topic) bool {
	if c == CategoryAll || c == "" {
		return true
	}
	label := strings.ToLower(topic.ID + " " + topic.Name)
	switch c {
	case CategoryMetrics:
		return strings.Contains(label, "metric") || strings.Contains(label, "target")
	default:
		return strings.Contains(label, string(c))
	}
}

func joinCategories() string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
