package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })

	Version = "v0.3.0"
	assert.Contains(t, String(), "gwcrelease v0.3.0")
	assert.Contains(t, String(), "commit "+GitCommit)
}

func TestDefaults(t *testing.T) {
	assert.NotEmpty(t, BuildTime)
	assert.NotEmpty(t, GitCommit)
}
