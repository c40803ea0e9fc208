package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"traffic-fines-service/internal/domain/traffic"
)

func TestBadgeForPointsBoundaries(t *testing.T) {
	tests := []struct {
		points   int
		expected traffic.BadgeTier
	}{
		{0, traffic.BadgeBronze},
		{999, traffic.BadgeBronze},
		{1000, traffic.BadgeSilver},
		{2999, traffic.BadgeSilver},
		{3000, traffic.BadgeGold},
		{4999, traffic.BadgeGold},
		{5000, traffic.BadgePlatinum},
		{100000, traffic.BadgePlatinum},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, BadgeForPoints(test.points), "points=%d", test.points)
	}
}

func TestBadgeForPointsMonotonic(t *testing.T) {
	previous := BadgeForPoints(0)
	for points := 1; points <= 6000; points++ {
		tier := BadgeForPoints(points)
		assert.GreaterOrEqual(t, tier, previous, "tier regressed at points=%d", points)
		previous = tier
	}
}
