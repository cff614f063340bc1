package learning

import "github.com/kalambet/mentord/internal/profile"

// Tone adjusts the wording of tailored instructions. It never changes the
// skill level.
type Tone string

const (
	Encouraging Tone = "encouraging"
	Neutral     Tone = "neutral"
	Challenging Tone = "challenging"
)

// Velocity is the mean success rate over the last window learning_history
// entries. With fewer than min(3, window) samples it returns 0.5.
func Velocity(p profile.Profile, window int) float64 {
	if window <= 0 {
		window = RecentWindow
	}
	recent := tail(p.LearningHistory, window)
	if len(recent) < min(3, window) {
		return DefaultSuccessRate
	}
	var sum float64
	for _, e := range recent {
		sum += e.SuccessRate
	}
	return sum / float64(len(recent))
}

// ToneFor maps a velocity onto a tone.
func ToneFor(velocity float64) Tone {
	switch {
	case velocity < 0.3:
		return Encouraging
	case velocity > 0.7:
		return Challenging
	}
	return Neutral
}
