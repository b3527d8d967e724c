package catalog

import "github.com/erazemk/resale/internal/model"

// Choice is one selectable filter value.
type Choice struct {
	Value string
	Label string
}

// Conditions lists the condition filter choices.
var Conditions = []Choice{
	{All, "All Conditions"},
	{model.ConditionNew, "New"},
	{model.ConditionLikeNew, "Like New"},
	{model.ConditionOpenBox, "Open Box"},
	{model.ConditionUsed, "Used"},
	{model.ConditionDamaged, "Damaged"},
}

// Categories lists the category filter choices.
var Categories = []Choice{
	{All, "All Categories"},
	{"Electronics", "Electronics"},
	{"Home & Kitchen", "Home & Kitchen"},
	{"Sports & Outdoors", "Sports & Outdoors"},
	{"Fashion", "Fashion"},
	{"Toys & Games", "Toys & Games"},
}

// Locations lists the location filter choices.
var Locations = []Choice{
	{All, "All Locations"},
	{"Atlanta, GA", "Atlanta, GA"},
	{"Dallas, TX", "Dallas, TX"},
	{"Phoenix, AZ", "Phoenix, AZ"},
	{"Miami, FL", "Miami, FL"},
	{"Seattle, WA", "Seattle, WA"},
}

// Label returns the display label of value within choices, or value itself.
func Label(choices []Choice, value string) string {
	for _, c := range choices {
		if c.Value == value {
			return c.Label
		}
	}
	return value
}
