package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_Strings(t *testing.T) {
	info := Get()
	assert.Equal(t, AppName, info.App)
	assert.Contains(t, info.Short(), info.Version)
	assert.True(t, strings.HasPrefix(info.String(), AppName+" "))
	assert.Contains(t, info.String(), "/")
	assert.Contains(t, UserAgent(), AppName+"/")
}

func TestApplyBuildInfo(t *testing.T) {
	origVersion, origRevision, origBuildDate := Version, Revision, BuildDate
	t.Cleanup(func() {
		Version, Revision, BuildDate = origVersion, origRevision, origBuildDate
	})

	t.Run("dev build takes module and vcs data", func(t *testing.T) {
		Version, Revision, BuildDate = devVersion, "HEAD", ""
		applyBuildInfo("v1.2.3", map[string]string{
			"vcs.revision": "0123456789abcdef0123",
			"vcs.modified": "true",
			"vcs.time":     "2024-05-01T10:00:00Z",
		})
		assert.Equal(t, "1.2.3", Version)
		assert.Equal(t, "0123456789ab-dirty", Revision)
		assert.Equal(t, "2024-05-01T10:00:00Z", BuildDate)
	})

	t.Run("ldflags values win", func(t *testing.T) {
		Version, Revision, BuildDate = "2.0.0", "release", "today"
		applyBuildInfo("v1.2.3", map[string]string{"vcs.revision": "abc", "vcs.time": "yesterday"})
		assert.Equal(t, "2.0.0", Version)
		assert.Equal(t, "release", Revision)
		assert.Equal(t, "today", BuildDate)
	})

	t.Run("devel module version is ignored", func(t *testing.T) {
		Version = devVersion
		applyBuildInfo("(devel)", nil)
		assert.Equal(t, devVersion, Version)
	})
}
