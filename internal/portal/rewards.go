package portal

import "github.com/shopspring/decimal"

// RewardStats summarize a shopper's environmental impact.
type RewardStats struct {
	TotalPurchases int
	CarbonSavedKg  int
	MoneySaved     decimal.Decimal
	EcoPoints      int
	Level          string
	NextLevel      string
}

// Achievement is a badge earned for buying returned goods.
type Achievement struct {
	Name      string
	Points    int
	Completed bool
}

// Reward is a perk that can be bought with eco points.
type Reward struct {
	Name      string
	Cost      int
	Available bool
}

// Rewards is the content of the rewards view. It is informational only.
type Rewards struct {
	Stats        RewardStats
	Achievements []Achievement
	Rewards      []Reward
}

// EcoRewards returns the rewards view content.
func EcoRewards() Rewards {
	return Rewards{
		Stats: RewardStats{
			TotalPurchases: 12,
			CarbonSavedKg:  156,
			MoneySaved:     decimal.NewFromInt(1240),
			EcoPoints:      2850,
			Level:          "Green Guardian",
			NextLevel:      "Sustainability Hero",
		},
		Achievements: []Achievement{
			{Name: "First Purchase", Points: 50, Completed: true},
			{Name: "Carbon Saver", Points: 100, Completed: true},
			{Name: "Bulk Buyer", Points: 200},
			{Name: "Community Champion", Points: 300},
		},
		Rewards: []Reward{
			{Name: "5% off next purchase", Cost: 500, Available: true},
			{Name: "Free local delivery", Cost: 750, Available: true},
			{Name: "10% off next purchase", Cost: 1000, Available: true},
			{Name: "Exclusive early access", Cost: 1500},
		},
	}
}

// Redeemable lists the available rewards the current points cover.
func (r Rewards) Redeemable() []Reward {
	var out []Reward
	for _, rw := range r.Rewards {
		if rw.Available && rw.Cost <= r.Stats.EcoPoints {
			out = append(out, rw)
		}
	}
	return out
}

// EarnedPoints sums the points of completed achievements.
func (r Rewards) EarnedPoints() int {
	n := 0
	for _, a := range r.Achievements {
		if a.Completed {
			n += a.Points
		}
	}
	return n
}
