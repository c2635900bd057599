package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestATSScore(t *testing.T) {
	assert.Equal(t, 0.0, ATSScore("", "golang engineer"))
	assert.Equal(t, 0.0, ATSScore("golang engineer", ""))
	assert.Equal(t, 0.0, ATSScore("the and of", "golang"))

	assert.InDelta(t, 100.0, ATSScore("Golang Kubernetes engineer", "golang kubernetes engineer"), 0.01)
	assert.Equal(t, 0.0, ATSScore("python django", "golang kubernetes"))

	partial := ATSScore("Golang engineer with Python", "Golang engineer with Kubernetes")
	assert.Greater(t, partial, 0.0)
	assert.Less(t, partial, 100.0)

	better := ATSScore("Golang Kubernetes engineer", "Golang Kubernetes engineer wanted")
	assert.Greater(t, better, partial)
}
