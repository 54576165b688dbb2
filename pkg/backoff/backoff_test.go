package backoff_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/publora/publora/pkg/backoff"
)

func TestExponential_Delay(t *testing.T) {
	t.Parallel()

	e := backoff.NewExponential(2*time.Second, 60*time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 0},
		{attempt: 1, want: 2 * time.Second},
		{attempt: 2, want: 4 * time.Second},
		{attempt: 3, want: 8 * time.Second},
		{attempt: 4, want: 16 * time.Second},
		{attempt: 5, want: 32 * time.Second},
		{attempt: 6, want: 60 * time.Second}, // capped
		{attempt: 10, want: 60 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponential_NoCap(t *testing.T) {
	t.Parallel()

	e := backoff.NewExponential(time.Second, 0)
	assert.Equal(t, 8*time.Second, e.Delay(4))
}

func TestFixed_Delay(t *testing.T) {
	t.Parallel()

	f := backoff.NewFixed(5 * time.Second)
	assert.Equal(t, 5*time.Second, f.Delay(1))
	assert.Equal(t, 5*time.Second, f.Delay(99))
}

func TestDefault(t *testing.T) {
	t.Parallel()

	d := backoff.Default()
	assert.Equal(t, 2*time.Second, d.Delay(1))
	assert.Equal(t, 60*time.Second, d.Delay(6))
}
