package models

import "github.com/shopspring/decimal"

// RewardTier is a static redemption tier.
type RewardTier struct {
	Key         string          `json:"key"`
	Name        string          `json:"name"`
	Cost        decimal.Decimal `json:"cost"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	Color       string          `json:"color"`
	Icon        string          `json:"icon"`
	Description string          `json:"description"`
}

// RewardTiers, ascending by cost and multiplier.
var RewardTiers = []RewardTier{
	{Key: "bronze", Name: "Bronze", Cost: decimal.NewFromInt(100), Multiplier: decimal.NewFromInt(1), Color: "#cd7f32", Icon: "🥉", Description: "Basic reward tier"},
	{Key: "silver", Name: "Silver", Cost: decimal.NewFromInt(500), Multiplier: decimal.RequireFromString("1.5"), Color: "#c0c0c0", Icon: "🥈", Description: "Enhanced rewards"},
	{Key: "gold", Name: "Gold", Cost: decimal.NewFromInt(1000), Multiplier: decimal.NewFromInt(2), Color: "#ffd700", Icon: "🥇", Description: "Premium rewards"},
	{Key: "platinum", Name: "Platinum", Cost: decimal.NewFromInt(5000), Multiplier: decimal.NewFromInt(3), Color: "#e5e4e2", Icon: "💎", Description: "Elite rewards"},
	{Key: "diamond", Name: "Diamond", Cost: decimal.NewFromInt(10000), Multiplier: decimal.NewFromInt(5), Color: "#b9f2ff", Icon: "👑", Description: "Legendary rewards"},
}

// RankTitle is a points threshold on the rank ladder.
type RankTitle struct {
	MinPoints int64  `json:"min_points"`
	Title     string `json:"title"`
	Color     string `json:"color"`
}

// RankTitles, ascending by MinPoints. The first entry is the 0-point floor.
var RankTitles = []RankTitle{
	{MinPoints: 0, Title: "Grid Rookie", Color: "#666666"},
	{MinPoints: 100, Title: "Grid Walker", Color: "#888888"},
	{MinPoints: 500, Title: "Grid Runner", Color: "#00d4ff"},
	{MinPoints: 1000, Title: "Grid Climber", Color: "#00f0ff"},
	{MinPoints: 5000, Title: "Grid Master", Color: "#ffd700"},
	{MinPoints: 10000, Title: "Grid Legend", Color: "#ff6b35"},
	{MinPoints: 50000, Title: "Grid God", Color: "#ff006e"},
}
