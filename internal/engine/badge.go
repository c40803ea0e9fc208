package engine

import "traffic-fines-service/internal/domain/traffic"

// BadgeForPoints maps a points total to its badge tier. Step function,
// monotonic in points:
//
//	points <  1000 → Bronze
//	points <  3000 → Silver
//	points <  5000 → Gold
//	points >= 5000 → Platinum
func BadgeForPoints(points int) traffic.BadgeTier {
	switch {
	case points >= 5000:
		return traffic.BadgePlatinum
	case points >= 3000:
		return traffic.BadgeGold
	case points >= 1000:
		return traffic.BadgeSilver
	default:
		return traffic.BadgeBronze
	}
}
