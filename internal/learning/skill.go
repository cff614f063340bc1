package learning

import "github.com/kalambet/mentord/internal/profile"

// RecentWindow is the number of learning_history entries averaged for
// skill estimation and velocity.
const RecentWindow = 10

type skillRule struct {
	level        profile.SkillLevel
	interactions int
	success      float64
}

// skillRules are checked from the highest level down. Expert is never
// reached automatically.
var skillRules = []skillRule{
	{level: profile.Advanced, interactions: 50, success: 0.7},
	{level: profile.Intermediate, interactions: 20, success: 0.5},
}

// ComputeSkillLevel derives the skill level from p without mutating it. The
// result never ranks below p's current level.
func ComputeSkillLevel(p profile.Profile) profile.SkillLevel {
	avg := RecentSuccess(p, RecentWindow)
	computed := profile.Beginner
	for _, r := range skillRules {
		if p.InteractionsCount > r.interactions && avg >= r.success {
			computed = r.level
			break
		}
	}
	if computed.Rank() < p.SkillLevel.Rank() {
		return p.SkillLevel
	}
	return computed
}

// RecentSuccess is the mean success rate over the last window entries of
// learning_history, or DefaultSuccessRate when there is no history.
func RecentSuccess(p profile.Profile, window int) float64 {
	recent := tail(p.LearningHistory, window)
	if len(recent) == 0 {
		return DefaultSuccessRate
	}
	var sum float64
	for _, e := range recent {
		sum += e.SuccessRate
	}
	return sum / float64(len(recent))
}

func tail(h []profile.LearningEntry, n int) []profile.LearningEntry {
	if n <= 0 {
		return nil
	}
	if len(h) > n {
		return h[len(h)-n:]
	}
	return h
}
