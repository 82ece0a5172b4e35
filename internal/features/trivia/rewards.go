// Package trivia: rewards.go holds the sats reward table.
package trivia

import (
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/config"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/questions"
)

// Rewards maps difficulty tiers to sats.
//
//	easy:   5 sats
//	medium: 10 sats
//	hard:   21 sats
type Rewards struct {
	Easy   int64
	Medium int64
	Hard   int64
}

// DefaultRewards is the table used when nothing is configured.
var DefaultRewards = Rewards{Easy: 5, Medium: 10, Hard: 21}

// RewardFor returns the sats paid for a correct answer.
// Unknown tiers pay the easy rate.
func (r Rewards) RewardFor(d questions.Difficulty) int64 {
	switch d {
	case questions.Medium:
		return r.Medium
	case questions.Hard:
		return r.Hard
	default:
		return r.Easy
	}
}

// RewardsFromConfig reads TRIVIA_REWARD_*.
func RewardsFromConfig(cfg *config.Config) Rewards {
	return Rewards{
		Easy:   cfg.TriviaRewardEasy,
		Medium: cfg.TriviaRewardMedium,
		Hard:   cfg.TriviaRewardHard,
	}
}
