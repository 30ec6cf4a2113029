// Package secrets redacts credentials from text before it is persisted to
// long-term memory. Detection uses the gitleaks default rule set; an optional
// TOML allowlist excludes known-safe patterns.
package secrets

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	gitleaksconfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksregexp "github.com/zricethezav/gitleaks/v8/regexp"
)

var (
	// ErrInvalidRegex indicates an allowlist pattern failed to compile.
	ErrInvalidRegex = errors.New("invalid regex pattern")

	// ErrInvalidTOML indicates an allowlist file could not be parsed.
	ErrInvalidTOML = errors.New("invalid TOML format")
)

// Finding describes one detected secret without its value.
type Finding struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description"`
	Line        int    `json:"line"`
}

// Result is the outcome of scrubbing one string.
type Result struct {
	Scrubbed string        `json:"scrubbed"`
	Findings []Finding     `json:"findings,omitempty"`
	Duration time.Duration `json:"duration"`
}

// HasFindings reports whether anything was redacted.
func (r Result) HasFindings() bool { return len(r.Findings) > 0 }

// RuleIDs returns the distinct matched rule ids, sorted.
func (r Result) RuleIDs() []string {
	seen := map[string]bool{}
	var ids []string
	for _, f := range r.Findings {
		if !seen[f.RuleID] {
			seen[f.RuleID] = true
			ids = append(ids, f.RuleID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Scrubber redacts secrets from content.
type Scrubber interface {
	Scrub(content string) Result
	IsEnabled() bool
}

// GitleaksScrubber detects secrets with the gitleaks SDK. The detector is
// built once and reused; calls are serialized because the detector keeps
// per-scan state.
type GitleaksScrubber struct {
	mu       sync.Mutex
	detector *detect.Detector
}

// New creates a scrubber. allowlist may be nil.
func New(allowlist *Allowlist) (*GitleaksScrubber, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("creating gitleaks detector: %w", err)
	}
	if allowlist != nil {
		if err := applyAllowlist(&detector.Config, allowlist); err != nil {
			return nil, err
		}
	}
	return &GitleaksScrubber{detector: detector}, nil
}

// IsEnabled implements Scrubber.
func (s *GitleaksScrubber) IsEnabled() bool { return true }

// Scrub replaces every detected secret with [REDACTED:<rule-id>].
func (s *GitleaksScrubber) Scrub(content string) Result {
	start := time.Now()
	res := Result{Scrubbed: content}
	if strings.TrimSpace(content) == "" {
		return res
	}

	s.mu.Lock()
	found := s.detector.DetectString(content)
	s.mu.Unlock()

	// Longest secrets first so a secret containing another is replaced whole.
	sort.SliceStable(found, func(i, j int) bool { return len(found[i].Secret) > len(found[j].Secret) })
	scrubbed := content
	for _, f := range found {
		if f.Secret == "" || !strings.Contains(scrubbed, f.Secret) {
			continue
		}
		scrubbed = strings.ReplaceAll(scrubbed, f.Secret, "[REDACTED:"+f.RuleID+"]")
		res.Findings = append(res.Findings, Finding{RuleID: f.RuleID, Description: f.Description, Line: f.StartLine})
	}
	res.Scrubbed = scrubbed
	res.Duration = time.Since(start)
	return res
}

// Noop returns content unchanged.
type Noop struct{}

// Scrub implements Scrubber.
func (Noop) Scrub(content string) Result { return Result{Scrubbed: content} }

// IsEnabled implements Scrubber.
func (Noop) IsEnabled() bool { return false }

func applyAllowlist(cfg *gitleaksconfig.Config, allowlist *Allowlist) error {
	global := &gitleaksconfig.Allowlist{Description: "genagent allowlist"}
	for _, pattern := range allowlist.Regexes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidRegex, pattern, err)
		}
		global.Regexes = append(global.Regexes, (*gitleaksregexp.Regexp)(re))
	}
	global.StopWords = append(global.StopWords, allowlist.StopWords...)
	cfg.Allowlists = append(cfg.Allowlists, global)
	return nil
}

var (
	_ Scrubber = (*GitleaksScrubber)(nil)
	_ Scrubber = Noop{}
)
