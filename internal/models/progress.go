package models

// RecomputeProgress returns completed/total as a percentage in [0,100].
// A project without tasks is at 0.
func RecomputeProgress(totalTasks, completedTasks int) float64 {
	if totalTasks <= 0 || completedTasks <= 0 {
		return 0
	}
	if completedTasks >= totalTasks {
		return 100
	}
	return float64(completedTasks) / float64(totalTasks) * 100
}

// WithCounts returns a copy of p with the given counters and a progress
// percentage derived from them. Counters are clamped so that
// 0 <= completed <= total.
func (p Project) WithCounts(totalTasks, completedTasks int) Project {
	if totalTasks < 0 {
		totalTasks = 0
	}
	if completedTasks < 0 {
		completedTasks = 0
	}
	if completedTasks > totalTasks {
		completedTasks = totalTasks
	}
	p.TotalTasks = totalTasks
	p.CompletedTasks = completedTasks
	p.ProgressPercentage = RecomputeProgress(totalTasks, completedTasks)
	return p
}
