package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/trace"
)

const (
	DenylistFile  = "denylist.json"
	AllowlistFile = "allowlist.json"
)

// Policy is the static denylist of artists and allowlist of regions. Membership is exact and case-sensitive.
type Policy struct {
	deny  map[string]bool
	allow map[string]bool
}

type denylistFile struct {
	ExplicitArtists []string `json:"explicit_artists"`
}

type allowlistFile struct {
	AllowedRegions *[]string `json:"allowed_regions"`
}

// NewPolicy builds a policy. A nil regions slice allows only [models.DefaultRegion].
func NewPolicy(deniedArtists, allowedRegions []string) *Policy {
	if allowedRegions == nil {
		allowedRegions = []string{models.DefaultRegion}
	}

	p := &Policy{deny: make(map[string]bool), allow: make(map[string]bool)}
	for _, a := range deniedArtists {
		p.deny[a] = true
	}
	for _, r := range allowedRegions {
		p.allow[r] = true
	}
	return p
}

// DefaultPolicy denies nobody and allows the default region.
func DefaultPolicy() *Policy {
	return NewPolicy(nil, nil)
}

// LoadPolicy reads denylist.json and allowlist.json from dir. Both files must exist and parse;
// an allowlist without "allowed_regions" allows the default region.
func LoadPolicy(dir string) (*Policy, error) {
	var deny denylistFile
	if err := readPolicyFile(filepath.Join(dir, DenylistFile), &deny); err != nil {
		return nil, err
	}

	var allow allowlistFile
	if err := readPolicyFile(filepath.Join(dir, AllowlistFile), &allow); err != nil {
		return nil, err
	}

	var regions []string
	if allow.AllowedRegions != nil {
		regions = *allow.AllowedRegions
		if regions == nil {
			regions = []string{}
		}
	}
	return NewPolicy(deny.ExplicitArtists, regions), nil
}

func readPolicyFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: failed to read policy file: %v", shared.ErrInvalidConfig, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: failed to parse %s: %v", shared.ErrInvalidConfig, filepath.Base(path), err)
	}
	return nil
}

// WritePolicy writes the two policy files into dir.
func WritePolicy(dir string, deniedArtists, allowedRegions []string) error {
	if deniedArtists == nil {
		deniedArtists = []string{}
	}
	if allowedRegions == nil {
		allowedRegions = []string{models.DefaultRegion}
	}
	if err := shared.WriteJSONFile(filepath.Join(dir, DenylistFile), denylistFile{ExplicitArtists: deniedArtists}); err != nil {
		return err
	}
	return shared.WriteJSONFile(filepath.Join(dir, AllowlistFile), allowlistFile{AllowedRegions: &allowedRegions})
}

// Denied reports whether artist is on the denylist.
func (p *Policy) Denied(artist string) bool {
	return p.deny[artist]
}

// Allowed reports whether region is on the allowlist.
func (p *Policy) Allowed(region string) bool {
	return p.allow[region]
}

// Regions returns the allowed regions in sorted order.
func (p *Policy) Regions() []string {
	regions := make([]string, 0, len(p.allow))
	for r := range p.allow {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions
}

// Compliance drops denied artists and tracks from regions outside the allowlist.
type Compliance struct {
	budget *Budget
	tracer trace.Tracer
	policy *Policy
}

// NewCompliance returns a Compliance stage. A nil policy uses [DefaultPolicy].
func NewCompliance(budget *Budget, tracer trace.Tracer, policy *Policy) *Compliance {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if tracer == nil {
		tracer = trace.Discard
	}
	return &Compliance{budget: budget, tracer: tracer, policy: policy}
}

// Enforce keeps tracks whose artist is not denied and whose region (default US) is allowed.
// With the budget spent, tracks are returned unchanged after a single budget_exceeded record.
func (c *Compliance) Enforce(tracks []models.Track) []models.Track {
	if c.budget.Exhausted() {
		c.tracer.Record(trace.AgentCompliance, "policy.enforce", trace.StatusBudgetExceeded, nil)
		return tracks
	}

	kept := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if c.policy.Denied(t.Artist) {
			c.tracer.Record(trace.AgentCompliance, "policy.block", trace.StatusDeny, trace.Details{"artist": t.Artist})
			continue
		}
		if region := t.RegionOrDefault(); !c.policy.Allowed(region) {
			c.tracer.Record(trace.AgentCompliance, "policy.region_block", trace.StatusDeny, trace.Details{"region": region})
			continue
		}
		kept = append(kept, t)
	}

	c.budget.Spend()
	return kept
}
