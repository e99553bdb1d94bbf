package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	defer func(v, c, b string) { Version, GitCommit, BuildTime = v, c, b }(Version, GitCommit, BuildTime)

	Version, GitCommit = "1.2.3", "unknown"
	assert.Equal(t, "1.2.3", String())

	GitCommit, BuildTime = "0123456789abcdef", "2026-01-02"
	assert.Equal(t, "1.2.3 (0123456, built 2026-01-02)", String())
}
