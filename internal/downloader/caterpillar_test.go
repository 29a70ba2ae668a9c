// SPDX-License-Identifier: MIT

package downloader

import (
	"testing"

	goversion "github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateVersion(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"1.2", "1.2"},
		{"1.0b1", "1.0-2.1"},
		{"1.0a1", "1.0-1.1"},
		{"1.0rc2", "1.0-3.2"},
		{"1.2.dev", "1.2-0.1"},
		{"1.2dev", "1.2-0.1"},
		{"1.2.dev3", "1.2-0.3"},
		{"2.0.dev1", "2.0-0.1"},
		{"garbage", "garbage"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, translateVersion(tc.in), "input %s", tc.in)
	}
}

func TestTranslateVersionParses(t *testing.T) {
	// Every translated form must be acceptable to go-version; dotted
	// dev suffixes are not without the translation.
	for _, v := range []string{"1.0b1", "1.0", "0.9.dev", "2.0.dev1", "1.0rc1"} {
		_, err := goversion.NewVersion(translateVersion(v))
		assert.NoError(t, err, v)
	}
}

func TestVersionGate(t *testing.T) {
	newEnough := []string{"1.0b1", "1.0", "1.2", "1.0.1", "1.0rc1", "1.1.dev1"}
	for _, v := range newEnough {
		tooOld, ok := versionTooOld(v)
		require.True(t, ok, v)
		assert.False(t, tooOld, "%s should pass the gate", v)
	}

	tooOld := []string{"0.9", "1.0a1", "0.9.dev", "1.0.dev1", "1.0dev"}
	for _, v := range tooOld {
		old, ok := versionTooOld(v)
		require.True(t, ok, v)
		assert.True(t, old, "%s should fail the gate", v)
	}
}

func TestVersionGateUnrecognized(t *testing.T) {
	_, ok := versionTooOld("caterpillar, whichever version")
	assert.False(t, ok)
}
