package ai

import (
	"net/url"
	"strings"

	"github.com/zricethezav/gitleaks/v8/detect"

	"github.com/fyrsmithlabs/focusfuel/internal/focus"
)

// scrubSnapshot returns a copy of snap whose URL and title are safe to send
// to a third-party model: URL credentials are dropped and anything the
// gitleaks rule set recognizes as a secret is redacted.
func scrubSnapshot(snap focus.Snapshot) focus.Snapshot {
	snap.URL = scrubSecrets(stripUserinfo(snap.URL))
	snap.Title = scrubSecrets(snap.Title)
	return snap
}

func stripUserinfo(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = nil
	return u.String()
}

// scrubSecrets redacts gitleaks findings. A fresh detector is built per
// call since detectors accumulate findings internally.
func scrubSecrets(content string) string {
	if content == "" {
		return content
	}
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		// Without a detector nothing can be vouched for.
		return "[REDACTED]"
	}
	for _, f := range detector.DetectString(content) {
		if f.Secret == "" {
			continue
		}
		content = strings.ReplaceAll(content, f.Secret, "[REDACTED:"+f.RuleID+"]")
	}
	return content
}
