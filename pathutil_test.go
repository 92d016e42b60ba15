package ftpserver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPathCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		current string
		param   string
		want    string
	}{
		{"empty param resets to root", "/a/b", "", "/"},
		{"slash param resets to root", "/a/b", "/", "/"},
		{"dotdot from depth one", "/a", "..", "/"},
		{"dotdot from depth two", "/a/b", "..", "/a"},
		{"dotdot at root stays root", "/", "..", "/"},
		{"relative append from root", "/", "sub", "/sub"},
		{"relative append from subdir", "/a", "sub", "/a/sub"},
		{"absolute replace", "/a/b", "/c/d", "/c/d"},
		{"trailing slash is trimmed", "/a", "sub/", "/a/sub"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := buildPath(tt.current, tt.param)
			require.True(t, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPathOverflow(t *testing.T) {
	t.Parallel()

	longParam := strings.Repeat("x", cwdMax+10)

	_, ok := buildPath("/", longParam)
	require.False(t, ok)
}

func TestUpOneLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/", upOneLevel("/"))
	require.Equal(t, "/", upOneLevel("/a"))
	require.Equal(t, "/a", upOneLevel("/a/b"))
	require.Equal(t, "/a/b", upOneLevel("/a/b/c"))
}
