package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_String(t *testing.T) {
	assert.Equal(t, "v1.2.3", Info{Version: "1.2.3"}.String())
	assert.Equal(t, "v1.2.3 (built 2026-01-02) commit 0123abcd",
		Info{Version: "1.2.3", BuildTime: "2026-01-02", GitCommit: "0123abcd99"}.String())
	assert.Equal(t, "v1.2.3 commit abc", Info{Version: "1.2.3", GitCommit: "abc"}.String())
}

func TestGet_StripsPrefix(t *testing.T) {
	old := Version
	defer func() { Version = old }()
	Version = "v2.0.0"

	assert.Equal(t, "2.0.0", Get().Version)
	assert.Equal(t, "v2.0.0", GetShortVersion())
	assert.NotEmpty(t, Get().GoVersion)
}
