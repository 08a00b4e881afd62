package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	v, c, b := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = v, c, b })

	Version = "v1.2.3"
	GitCommit = "unknown"
	assert.Equal(t, "v1.2.3", String())

	GitCommit, BuildTime = "abc1234", "2026-01-02"
	assert.Equal(t, "v1.2.3 (abc1234, built 2026-01-02)", String())
}
