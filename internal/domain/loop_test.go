package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoopRangeIsSet(t *testing.T) {
	assert.False(t, NoLoopRange.IsSet())
	assert.False(t, LoopRange{Begin: unsetOffset, End: time.Minute}.IsSet())
	assert.True(t, LoopRange{Begin: 0, End: time.Minute}.IsSet())
}

func TestLoopRangeContains(t *testing.T) {
	r := LoopRange{Begin: 10 * time.Second, End: 20 * time.Second}

	assert.True(t, r.Contains(15*time.Second))
	assert.False(t, r.Contains(10*time.Second), "begin boundary is exclusive")
	assert.False(t, r.Contains(20*time.Second), "end boundary is exclusive")
	assert.False(t, r.Contains(25*time.Second))
	assert.False(t, NoLoopRange.Contains(15*time.Second))
}

func TestLoopRangeCoerce(t *testing.T) {
	r := LoopRange{Begin: 10 * time.Second, End: 20 * time.Second}

	tests := []struct {
		name string
		pos  time.Duration
		want time.Duration
	}{
		{"inside stays", 15 * time.Second, 15 * time.Second},
		{"before wraps to begin", 5 * time.Second, 10 * time.Second},
		{"at end wraps to begin", 20 * time.Second, 10 * time.Second},
		{"past end wraps to begin", 30 * time.Second, 10 * time.Second},
		{"at begin stays at begin", 10 * time.Second, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Coerce(tt.pos))
		})
	}

	assert.Equal(t, 99*time.Second, NoLoopRange.Coerce(99*time.Second), "unset range passes positions through")
}
