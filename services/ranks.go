package services

import (
	"strings"

	"agent-grid-rewards/models"
)

// RankForPoints returns the highest rank whose threshold does not exceed points.
func RankForPoints(points int64) models.RankTitle {
	for i := len(models.RankTitles) - 1; i >= 0; i-- {
		if models.RankTitles[i].MinPoints <= points {
			return models.RankTitles[i]
		}
	}
	if len(models.RankTitles) > 0 {
		return models.RankTitles[0]
	}
	return models.RankTitle{Title: "Grid Rookie", Color: "#666666"}
}

// NextRank returns the rank after the current one, or nil at the top.
func NextRank(points int64) *models.RankTitle {
	for i := range models.RankTitles {
		if models.RankTitles[i].MinPoints > points {
			next := models.RankTitles[i]
			return &next
		}
	}
	return nil
}

// TierDescriptor looks up a reward tier by key. Unknown keys are an error, never a default.
func TierDescriptor(key string) (models.RewardTier, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, tier := range models.RewardTiers {
		if tier.Key == key {
			return tier, nil
		}
	}
	return models.RewardTier{}, ErrInvalidTier
}
