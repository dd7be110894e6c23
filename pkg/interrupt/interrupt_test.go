package interrupt_test

import (
	"testing"

	"github.com/aretw0/tendril/pkg/interrupt"
	"github.com/stretchr/testify/assert"
)

func TestGate(t *testing.T) {
	g := interrupt.Before("respond", "approve")

	assert.True(t, g.ShouldPause("respond"))
	assert.True(t, g.ShouldPause("approve"))
	assert.False(t, g.ShouldPause("classify"))
	assert.Equal(t, []string{"approve", "respond"}, g.Nodes())

	// Pure: asking twice gives the same answer.
	assert.True(t, g.ShouldPause("respond"))
}

func TestNever(t *testing.T) {
	assert.False(t, interrupt.Never.ShouldPause("respond"))
	assert.Empty(t, interrupt.Never.Nodes())
}
