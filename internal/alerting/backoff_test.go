package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay(t *testing.T) {
	base := 1 * time.Second
	max := 30 * time.Second

	t.Run("should double from the base", func(t *testing.T) {
		assert.Equal(t, 1*time.Second, backoffDelay(base, max, 0))
		assert.Equal(t, 2*time.Second, backoffDelay(base, max, 1))
		assert.Equal(t, 4*time.Second, backoffDelay(base, max, 2))
		assert.Equal(t, 8*time.Second, backoffDelay(base, max, 3))
	})

	t.Run("should cap at the maximum", func(t *testing.T) {
		assert.Equal(t, max, backoffDelay(base, max, 5))
		assert.Equal(t, max, backoffDelay(base, max, 20))
	})

	t.Run("should never decrease as attempts grow", func(t *testing.T) {
		previous := time.Duration(0)
		for attempt := uint(0); attempt < 80; attempt++ {
			delay := backoffDelay(base, max, attempt)
			assert.GreaterOrEqual(t, delay, previous, "attempt %d", attempt)
			assert.LessOrEqual(t, delay, max, "attempt %d", attempt)
			previous = delay
		}
	})

	t.Run("should survive shift overflow", func(t *testing.T) {
		assert.Equal(t, max, backoffDelay(base, max, 62))
		assert.Equal(t, max, backoffDelay(base, max, ^uint(0)))
	})

	t.Run("should treat a non-positive base as no delay", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), backoffDelay(0, max, 3))
	})

	t.Run("should lift the cap to the base when misconfigured", func(t *testing.T) {
		assert.Equal(t, 5*time.Second, backoffDelay(5*time.Second, 1*time.Second, 0))
	})
}
