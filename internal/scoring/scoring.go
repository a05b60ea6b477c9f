// Package scoring computes priority scores for reports.
//
// Scores live on a configurable bounded scale (0-100 by default) and are a
// pure function of the report's category, upvote count, and age. The score
// is monotonic in upvotes and in the per-category severity weight: more
// community engagement or a more severe category never lowers the score.
package scoring

import (
	"time"

	"civicwatch/internal/config"
	"civicwatch/internal/domain"
)

// Engine computes priority scores from report attributes.
type Engine struct {
	cfg config.ScoringConfig
}

// NewEngine creates an Engine with the given scoring configuration.
func NewEngine(cfg config.ScoringConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Score returns the priority score for a report as of now. Deterministic for
// a fixed now; callers pass time.Now() at mutation points so that pure reads
// never rescore.
func (e *Engine) Score(r domain.Report, now time.Time) float64 {
	score := e.cfg.SeverityWeights[r.Category]
	score += e.cfg.UpvoteStep * float64(r.UpvoteCount)

	// fresh reports get a visibility boost that decays linearly to zero
	// over the recency window
	window := e.cfg.RecencyWindow()
	if e.cfg.RecencyBonus > 0 && window > 0 {
		age := now.Sub(r.CreatedAt)
		if age < 0 {
			age = 0
		}
		if age < window {
			remaining := 1 - float64(age)/float64(window)
			score += e.cfg.RecencyBonus * remaining
		}
	}

	return e.clamp(score)
}

// ScaleMax exposes the top of the score scale for normalization.
func (e *Engine) ScaleMax() float64 {
	return e.cfg.ScaleMax
}

func (e *Engine) clamp(score float64) float64 {
	if score < e.cfg.ScaleMin {
		return e.cfg.ScaleMin
	}
	if score > e.cfg.ScaleMax {
		return e.cfg.ScaleMax
	}
	return score
}
