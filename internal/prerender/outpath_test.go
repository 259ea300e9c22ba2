package prerender

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveOutputPath_DefaultRule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		routePath     string
		autoSubfolder bool
		want          string
	}{
		{"root", "/", true, "/index.html"},
		{"subfolder index", "/about", true, "/about/index.html"},
		{"explicit index segment", "/posts/index", true, "/posts/index.html"},
		{"flat naming", "/about", false, "/about.html"},
		{"nested subfolder", "/blog/first-post", true, "/blog/first-post/index.html"},
		{"trailing slash collapses", "/about/", true, "/about/index.html"},
		{"root flat", "/", false, "/index.html"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ResolveOutputPath(tc.routePath, PathOverride{}, PathOverride{}, tc.autoSubfolder)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestResolveOutputPath_RouteOverrideBeatsGlobal(t *testing.T) {
	t.Parallel()

	global := Computed(func(p string) string { return "g" + p })
	route := Computed(func(p string) string { return "r" + p })

	require.Equal(t, "r/about", ResolveOutputPath("/about", route, global, true))
	require.Equal(t, "g/about", ResolveOutputPath("/about", PathOverride{}, global, true))
}

func TestResolveOutputPath_LiteralWinsOutright(t *testing.T) {
	t.Parallel()

	got := ResolveOutputPath("/about", Literal("custom/about.html"), Computed(func(string) string { return "unused" }), true)
	require.Equal(t, "custom/about.html", got)
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"about", "/about"},
		{"/about/", "/about"},
		{"/a/./b/../c", "/a/c"},
		{"  /spaced  ", "/spaced"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, NormalizePath(tc.in), "input %q", tc.in)
	}
}
