package domains

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// File is the on-disk TOML form of the domain lists.
//
//	blacklist = ["facebook.com", "reddit.com"]
//	whitelist = ["github.com"]
type File struct {
	Blacklist []string `toml:"blacklist"`
	Whitelist []string `toml:"whitelist"`
}

// LoadFile reads a TOML list file.
func LoadFile(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decoding domain list file %s: %w", path, err)
	}
	return &f, nil
}

// Source describes where the effective lists come from: optional built-in
// defaults, inline entries from configuration, and an optional TOML file.
type Source struct {
	Defaults  bool
	Blacklist []string
	Whitelist []string
	File      string
}

// Build resolves the source into blacklist and whitelist entries.
func (s Source) Build() (blacklist, whitelist []string, err error) {
	if s.Defaults {
		blacklist = append(blacklist, DefaultBlacklist...)
		whitelist = append(whitelist, DefaultWhitelist...)
	}
	blacklist = append(blacklist, s.Blacklist...)
	whitelist = append(whitelist, s.Whitelist...)

	if s.File != "" {
		f, err := LoadFile(s.File)
		if err != nil {
			return nil, nil, err
		}
		blacklist = append(blacklist, f.Blacklist...)
		whitelist = append(whitelist, f.Whitelist...)
	}
	return blacklist, whitelist, nil
}

// Load builds lists from the source.
func Load(s Source) (*Lists, error) {
	black, white, err := s.Build()
	if err != nil {
		return nil, err
	}
	return NewLists(black, white), nil
}
