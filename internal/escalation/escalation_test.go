package escalation

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicwatch/internal/domain"
)

func reportWith(score float64, status domain.Status) domain.Report {
	return domain.Report{ID: uuid.New(), PriorityScore: score, Status: status}
}

func TestCompute(t *testing.T) {
	t.Run("dashboard scenario: one of three escalates at threshold 90", func(t *testing.T) {
		reports := []domain.Report{
			reportWith(95, domain.StatusOpen),
			reportWith(75, domain.StatusScheduled),
			reportWith(45, domain.StatusOpen),
		}
		result := Compute(reports, 90)
		assert.Equal(t, 1, result.Count)
		require.Len(t, result.AffectedIDs, 1)
		assert.Equal(t, reports[0].ID, result.AffectedIDs[0])
	})

	t.Run("threshold is inclusive", func(t *testing.T) {
		result := Compute([]domain.Report{reportWith(90, domain.StatusOpen)}, 90)
		assert.Equal(t, 1, result.Count)
	})

	t.Run("resolved reports never escalate", func(t *testing.T) {
		result := Compute([]domain.Report{reportWith(99, domain.StatusResolved)}, 90)
		assert.Zero(t, result.Count)
		assert.Empty(t, result.AffectedIDs)
	})

	t.Run("empty input yields an empty result", func(t *testing.T) {
		result := Compute(nil, 90)
		assert.Zero(t, result.Count)
		assert.NotNil(t, result.AffectedIDs)
	})

	t.Run("result is independent of input order", func(t *testing.T) {
		reports := []domain.Report{
			reportWith(95, domain.StatusOpen),
			reportWith(92, domain.StatusScheduled),
			reportWith(45, domain.StatusOpen),
			reportWith(91, domain.StatusOpen),
			reportWith(88, domain.StatusScheduled),
		}
		want := Compute(reports, 90)

		rng := rand.New(rand.NewSource(1))
		for i := 0; i < 10; i++ {
			shuffled := append([]domain.Report(nil), reports...)
			rng.Shuffle(len(shuffled), func(a, b int) {
				shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
			})
			assert.Equal(t, want, Compute(shuffled, 90))
		}
	})
}
