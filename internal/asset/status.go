package asset

import (
	"fmt"
	"strings"
)

// Status is an asset's position in the review workflow.
//
// The forward chain is fixed: Draft → InReview → Approved → Published.
// Rejected and Withdrawn are exits out of review, reachable from InReview
// or Approved but not from Draft or Published. The service enforces the
// same workflow; local validation exists to fail before a round trip.
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusInReview  Status = "InReview"
	StatusApproved  Status = "Approved"
	StatusPublished Status = "Published"
	StatusRejected  Status = "Rejected"
	StatusWithdrawn Status = "Withdrawn"
)

// forwardChain is the total order for forward transitions.
var forwardChain = []Status{StatusDraft, StatusInReview, StatusApproved, StatusPublished}

// forwardOrdinal maps chain states to their position. Exit states carry
// no ordinal.
var forwardOrdinal = func() map[Status]int {
	m := make(map[Status]int, len(forwardChain))
	for i, s := range forwardChain {
		m[s] = i
	}
	return m
}()

// ParseStatus parses a user- or service-supplied status value. Matching
// is case-insensitive; the canonical capitalized form is returned.
func ParseStatus(value string) (Status, error) {
	switch strings.ToLower(value) {
	case "draft":
		return StatusDraft, nil
	case "inreview":
		return StatusInReview, nil
	case "approved":
		return StatusApproved, nil
	case "published":
		return StatusPublished, nil
	case "rejected":
		return StatusRejected, nil
	case "withdrawn":
		return StatusWithdrawn, nil
	}
	return "", fmt.Errorf("unknown asset status %q", value)
}

// PathSegment returns the lowercase form used in status endpoint URLs.
func (s Status) PathSegment() string {
	return strings.ToLower(string(s))
}

// String returns the canonical capitalized form used in JSON bodies.
func (s Status) String() string {
	return string(s)
}

// IsExit reports whether s is one of the review exit states.
func (s Status) IsExit() bool {
	return s == StatusRejected || s == StatusWithdrawn
}

// TransitionPolicy controls which states may move to the exit states.
// The service's documented contract allows exits from review only; the
// policy is explicit so a differing live contract needs a one-line change.
type TransitionPolicy struct {
	ExitSources []Status
}

// DefaultTransitionPolicy mirrors the service workflow: Rejected and
// Withdrawn are reachable from InReview and Approved only.
func DefaultTransitionPolicy() TransitionPolicy {
	return TransitionPolicy{ExitSources: []Status{StatusInReview, StatusApproved}}
}

func (p TransitionPolicy) allowsExitFrom(s Status) bool {
	for _, src := range p.ExitSources {
		if src == s {
			return true
		}
	}
	return false
}

// ForwardPath computes the minimal single-step transition sequence from
// one status to another under the policy. The returned slice excludes
// from and ends with to. It returns false for same-state no-ops,
// backward or skipping requests, and exits not allowed by the policy.
func ForwardPath(from, to Status, policy TransitionPolicy) ([]Status, bool) {
	if from == to {
		return nil, false
	}

	if to.IsExit() {
		if from.IsExit() || !policy.allowsExitFrom(from) {
			return nil, false
		}
		return []Status{to}, true
	}

	fromOrd, fromOK := forwardOrdinal[from]
	toOrd, toOK := forwardOrdinal[to]
	if !fromOK || !toOK || toOrd <= fromOrd {
		return nil, false
	}

	return forwardChain[fromOrd+1 : toOrd+1], true
}
