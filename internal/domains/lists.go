package domains

import (
	"sort"
	"sync"
)

// Membership is the result of a list lookup.
type Membership int

const (
	// Unlisted means the domain is on neither list.
	Unlisted Membership = iota
	// Blacklisted domains are always distracting.
	Blacklisted
	// Whitelisted domains are always productive.
	Whitelisted
)

// DefaultBlacklist holds commonly distracting sites.
var DefaultBlacklist = []string{
	"facebook.com",
	"twitter.com",
	"instagram.com",
	"tiktok.com",
	"youtube.com",
	"reddit.com",
	"netflix.com",
	"hulu.com",
	"amazon.com",
	"ebay.com",
}

// DefaultWhitelist holds common productivity tools.
var DefaultWhitelist = []string{
	"github.com",
	"stackoverflow.com",
	"docs.google.com",
	"notion.so",
	"figma.com",
	"slack.com",
	"zoom.us",
	"teams.microsoft.com",
	"calendar.google.com",
	"drive.google.com",
}

// Lists holds the mutable blacklist and whitelist. Entries are normalized on
// insert and matched exactly; there is no wildcard support. Lists is safe
// for concurrent use.
//
// Runtime additions and removals are remembered per list so that Reload
// can reapply them on top of freshly loaded file contents.
type Lists struct {
	mu    sync.RWMutex
	black map[string]struct{}
	white map[string]struct{}

	blackEdits edits
	whiteEdits edits
}

// edits records runtime changes to one list. A domain is in at most one
// of added and removed.
type edits struct {
	added   map[string]struct{}
	removed map[string]struct{}
}

func (e *edits) add(d string) {
	if e.added == nil {
		e.added = make(map[string]struct{})
	}
	e.added[d] = struct{}{}
	delete(e.removed, d)
}

func (e *edits) remove(d string) {
	if e.removed == nil {
		e.removed = make(map[string]struct{})
	}
	e.removed[d] = struct{}{}
	delete(e.added, d)
}

func (e edits) apply(set map[string]struct{}) {
	for d := range e.removed {
		delete(set, d)
	}
	for d := range e.added {
		set[d] = struct{}{}
	}
}

// NewLists creates lists seeded with the given entries.
func NewLists(blacklist, whitelist []string) *Lists {
	l := &Lists{}
	l.Replace(blacklist, whitelist)
	return l
}

// NewDefaultLists creates lists seeded with DefaultBlacklist and DefaultWhitelist.
func NewDefaultLists() *Lists {
	return NewLists(DefaultBlacklist, DefaultWhitelist)
}

// Lookup reports which list, if any, contains the normalized form of
// domain. The blacklist is checked first.
func (l *Lists) Lookup(domain string) Membership {
	d := Normalize(domain)
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.black[d]; ok {
		return Blacklisted
	}
	if _, ok := l.white[d]; ok {
		return Whitelisted
	}
	return Unlisted
}

// AddToBlacklist adds a domain to the blacklist.
func (l *Lists) AddToBlacklist(domain string) {
	l.add(blackSet, domain)
}

// RemoveFromBlacklist removes a domain from the blacklist.
func (l *Lists) RemoveFromBlacklist(domain string) {
	l.remove(blackSet, domain)
}

// AddToWhitelist adds a domain to the whitelist.
func (l *Lists) AddToWhitelist(domain string) {
	l.add(whiteSet, domain)
}

// RemoveFromWhitelist removes a domain from the whitelist.
func (l *Lists) RemoveFromWhitelist(domain string) {
	l.remove(whiteSet, domain)
}

// Blacklist returns the sorted blacklist entries.
func (l *Lists) Blacklist() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return sortedKeys(l.black)
}

// Whitelist returns the sorted whitelist entries.
func (l *Lists) Whitelist() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return sortedKeys(l.white)
}

// Replace swaps both lists atomically and forgets any runtime edits.
func (l *Lists) Replace(blacklist, whitelist []string) {
	black := toSet(blacklist)
	white := toSet(whitelist)
	l.mu.Lock()
	l.black = black
	l.white = white
	l.blackEdits = edits{}
	l.whiteEdits = edits{}
	l.mu.Unlock()
}

// Reload swaps both lists atomically and then reapplies the runtime
// additions and removals made since the last Replace.
func (l *Lists) Reload(blacklist, whitelist []string) {
	black := toSet(blacklist)
	white := toSet(whitelist)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blackEdits.apply(black)
	l.whiteEdits.apply(white)
	l.black = black
	l.white = white
}

type listRef struct {
	set   *map[string]struct{}
	edits *edits
}

// blackSet and whiteSet select a list; they are called with l.mu held.
func blackSet(l *Lists) listRef { return listRef{set: &l.black, edits: &l.blackEdits} }
func whiteSet(l *Lists) listRef { return listRef{set: &l.white, edits: &l.whiteEdits} }

func (l *Lists) add(pick func(*Lists) listRef, domain string) {
	d := Normalize(domain)
	if d == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ref := pick(l)
	if *ref.set == nil {
		*ref.set = make(map[string]struct{})
	}
	(*ref.set)[d] = struct{}{}
	ref.edits.add(d)
}

func (l *Lists) remove(pick func(*Lists) listRef, domain string) {
	d := Normalize(domain)
	if d == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ref := pick(l)
	delete(*ref.set, d)
	ref.edits.remove(d)
}

func toSet(entries []string) map[string]struct{} {
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if d := Normalize(e); d != "" {
			set[d] = struct{}{}
		}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
