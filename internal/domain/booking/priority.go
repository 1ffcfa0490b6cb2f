package booking

import "fmt"

// Priority ranks competing bookings for preemption.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Rank orders priorities; higher wins. Unknown values rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// IsValid returns true for LOW, MEDIUM and HIGH.
func (p Priority) IsValid() bool {
	return p.Rank() > 0
}

// ParsePriority converts a string to a Priority. Empty means MEDIUM.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityMedium, nil
	}
	p := Priority(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid priority: %s", s)
	}
	return p, nil
}

// SupportMode describes how technical support is delivered.
type SupportMode string

const (
	SupportNone   SupportMode = ""
	SupportOnSite SupportMode = "ON_SITE"
	SupportRemote SupportMode = "REMOTE"
)

// ParseSupportMode converts a string to a SupportMode.
func ParseSupportMode(s string) (SupportMode, error) {
	switch m := SupportMode(s); m {
	case SupportNone, SupportOnSite, SupportRemote:
		return m, nil
	default:
		return "", fmt.Errorf("invalid support mode: %s", s)
	}
}

// ApprovalDomain names one of the two independent approval flags.
type ApprovalDomain string

const (
	ApprovalSpace ApprovalDomain = "space_approved"
	ApprovalTech  ApprovalDomain = "tech_approved"
)

// ApprovalDomains lists both flags in a stable order.
func ApprovalDomains() []ApprovalDomain {
	return []ApprovalDomain{ApprovalSpace, ApprovalTech}
}
