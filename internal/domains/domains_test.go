package domains

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "full url with www", in: "https://WWW.Example.com/x", want: "example.com"},
		{name: "bare domain", in: "facebook.com", want: "facebook.com"},
		{name: "bare domain with path", in: "facebook.com/groups/1", want: "facebook.com"},
		{name: "port dropped", in: "http://localhost:8080/app", want: "localhost"},
		{name: "subdomain kept", in: "https://docs.google.com/document", want: "docs.google.com"},
		{name: "repeated www", in: "www.www.reddit.com", want: "reddit.com"},
		{name: "surrounding space", in: "  YouTube.com  ", want: "youtube.com"},
		{name: "empty", in: "", want: ""},
		{name: "unparseable falls back to raw", in: "Not A URL", want: "not a url"},
		{name: "ipv6 url keeps brackets", in: "http://[::1]:80/", want: "[::1]"},
		{name: "bare ipv6 literal", in: "::1", want: "[::1]"},
		{name: "bracketed ipv6", in: "[2001:DB8::1]", want: "[2001:db8::1]"},
		{name: "ipv4 with port", in: "http://127.0.0.1:3000/", want: "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"https://WWW.Example.com/x",
		"facebook.com",
		"http://user:pw@www.News.ycombinator.com:443/item?id=1",
		"chrome://extensions",
		"%%%bad",
		"www.",
		"Not A URL",
		"http://[::1]:80/",
		"::1",
		"[fe80::1]",
		"https://[2001:db8::1]/path",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestLists_Lookup(t *testing.T) {
	l := NewLists([]string{"https://www.Facebook.com"}, []string{"github.com"})

	assert.Equal(t, Blacklisted, l.Lookup("facebook.com"))
	assert.Equal(t, Blacklisted, l.Lookup("https://www.facebook.com/feed"))
	assert.Equal(t, Whitelisted, l.Lookup("https://github.com/org/repo"))
	assert.Equal(t, Unlisted, l.Lookup("random-blog.com"))

	// exact match only
	assert.Equal(t, Unlisted, l.Lookup("m.facebook.com"))
	assert.Equal(t, Unlisted, l.Lookup("gist.github.com"))
}

func TestLists_BlacklistTakesPrecedence(t *testing.T) {
	l := NewLists([]string{"example.com"}, []string{"example.com"})
	assert.Equal(t, Blacklisted, l.Lookup("example.com"))
}

func TestLists_Mutations(t *testing.T) {
	l := NewLists(nil, nil)

	l.AddToBlacklist("WWW.Reddit.com")
	l.AddToWhitelist("https://notion.so/page")
	l.AddToBlacklist("")

	assert.Equal(t, []string{"reddit.com"}, l.Blacklist())
	assert.Equal(t, []string{"notion.so"}, l.Whitelist())

	l.RemoveFromBlacklist("https://www.reddit.com")
	l.RemoveFromWhitelist("notion.so")
	assert.Empty(t, l.Blacklist())
	assert.Empty(t, l.Whitelist())
	assert.Equal(t, Unlisted, l.Lookup("reddit.com"))
}

func TestLists_ReloadReappliesEdits(t *testing.T) {
	tests := []struct {
		name      string
		edit      func(l *Lists)
		black     []string
		white     []string
		wantBlack []string
		wantWhite []string
	}{
		{
			name:      "no edits takes file contents",
			edit:      func(*Lists) {},
			black:     []string{"c.com"},
			wantBlack: []string{"c.com"},
			wantWhite: []string{},
		},
		{
			name:      "added entry survives",
			edit:      func(l *Lists) { l.AddToBlacklist("x.com") },
			black:     []string{"c.com"},
			wantBlack: []string{"c.com", "x.com"},
			wantWhite: []string{},
		},
		{
			name:      "removed entry stays removed",
			edit:      func(l *Lists) { l.RemoveFromBlacklist("a.com") },
			black:     []string{"a.com", "c.com"},
			wantBlack: []string{"c.com"},
			wantWhite: []string{},
		},
		{
			name: "remove after add cancels the add",
			edit: func(l *Lists) {
				l.AddToWhitelist("w.com")
				l.RemoveFromWhitelist("w.com")
			},
			white:     []string{"b.com"},
			wantBlack: []string{},
			wantWhite: []string{"b.com"},
		},
		{
			name: "add after remove cancels the remove",
			edit: func(l *Lists) {
				l.RemoveFromWhitelist("b.com")
				l.AddToWhitelist("b.com")
			},
			white:     []string{"b.com"},
			wantBlack: []string{},
			wantWhite: []string{"b.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLists([]string{"a.com"}, []string{"b.com"})
			tt.edit(l)
			l.Reload(tt.black, tt.white)
			assert.Equal(t, tt.wantBlack, l.Blacklist())
			assert.Equal(t, tt.wantWhite, l.Whitelist())
		})
	}
}

func TestLists_ReplaceForgetsEdits(t *testing.T) {
	l := NewLists(nil, nil)
	l.AddToBlacklist("x.com")
	l.Replace([]string{"a.com"}, nil)
	l.Reload([]string{"a.com"}, nil)
	assert.Equal(t, []string{"a.com"}, l.Blacklist())
}

func TestNewDefaultLists(t *testing.T) {
	l := NewDefaultLists()
	assert.Len(t, l.Blacklist(), len(DefaultBlacklist))
	assert.Len(t, l.Whitelist(), len(DefaultWhitelist))
	assert.Equal(t, Blacklisted, l.Lookup("https://www.youtube.com/watch?v=1"))
	assert.Equal(t, Whitelisted, l.Lookup("https://stackoverflow.com/q/1"))
}

func writeListFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

// replaceListFile swaps the file in with a rename so the watcher sees a
// single event carrying the complete contents.
func replaceListFile(t *testing.T, path, body string) {
	t.Helper()
	tmp := path + ".tmp"
	writeListFile(t, tmp, body)
	require.NoError(t, os.Rename(tmp, path))
}

func TestSource_Build(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domains.toml")
	writeListFile(t, path, `
blacklist = ["news.example.com"]
whitelist = ["wiki.example.com"]
`)

	l, err := Load(Source{
		Defaults:  false,
		Blacklist: []string{"inline.example.com"},
		File:      path,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"inline.example.com", "news.example.com"}, l.Blacklist())
	assert.Equal(t, []string{"wiki.example.com"}, l.Whitelist())
}

func TestSource_BuildMissingFile(t *testing.T) {
	_, err := Load(Source{File: filepath.Join(t.TempDir(), "missing.toml")})
	require.Error(t, err)
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	writeListFile(t, path, "blacklist = [unterminated")
	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestNewWatcher_NoFile(t *testing.T) {
	_, err := NewWatcher(NewLists(nil, nil), Source{}, nil)
	require.ErrorIs(t, err, ErrNoFile)
}

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domains.toml")
	writeListFile(t, path, `blacklist = ["a.example.com"]`)

	src := Source{File: path}
	lists, err := Load(src)
	require.NoError(t, err)

	w, err := NewWatcher(lists, src, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	replaceListFile(t, path, `blacklist = ["b.example.com"]`)

	require.Eventually(t, func() bool {
		return lists.Lookup("b.example.com") == Blacklisted
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, Unlisted, lists.Lookup("a.example.com"))
}

func TestWatcher_KeepsListsOnParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domains.toml")
	writeListFile(t, path, `blacklist = ["a.example.com"]`)

	src := Source{File: path}
	lists, err := Load(src)
	require.NoError(t, err)

	reloaded := make(chan error, 1)
	w, err := NewWatcher(lists, src, nil, WithReloadHook(func(err error) {
		select {
		case reloaded <- err:
		default:
		}
	}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	replaceListFile(t, path, "blacklist = [")

	select {
	case err := <-reloaded:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload attempt observed")
	}
	assert.Equal(t, Blacklisted, lists.Lookup("a.example.com"))
}

func TestWatcher_ReloadKeepsRuntimeEdits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domains.toml")
	writeListFile(t, path, `blacklist = ["a.example.com", "old.example.com"]`)

	src := Source{File: path}
	lists, err := Load(src)
	require.NoError(t, err)

	w, err := NewWatcher(lists, src, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	lists.AddToBlacklist("x.com")
	lists.RemoveFromBlacklist("old.example.com")
	replaceListFile(t, path, `blacklist = ["b.example.com", "old.example.com"]`)

	require.Eventually(t, func() bool {
		return lists.Lookup("b.example.com") == Blacklisted
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, Blacklisted, lists.Lookup("x.com"))
	assert.Equal(t, Unlisted, lists.Lookup("old.example.com"))
	assert.Equal(t, Unlisted, lists.Lookup("a.example.com"))
}
