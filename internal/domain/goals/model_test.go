package goals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcile(t *testing.T) {
	g := Goal{Target: 30, Progress: 29, Status: StatusActive}
	g.Reconcile()
	assert.Equal(t, StatusActive, g.Status)

	g.Progress = 30
	g.Reconcile()
	assert.Equal(t, StatusCompleted, g.Status)

	abandoned := Goal{Target: 10, Progress: 12, Status: StatusAbandoned}
	abandoned.Reconcile()
	assert.Equal(t, StatusAbandoned, abandoned.Status)
}
