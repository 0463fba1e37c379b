package scoring

import (
	"fmt"
	"strings"
)

// UnansweredPolicy что делать с вопросом, на который нечем ответить:
// numeric/rating без значения и multi_choice (у него нет ключа ответов).
type UnansweredPolicy string

const (
	UnansweredUngraded UnansweredPolicy = "ungraded" // passed = NULL
	UnansweredPass     UnansweredPolicy = "pass"     // старое поведение: passed = true
	UnansweredFail     UnansweredPolicy = "fail"
)

// CriticalRule условие, при котором проваленный ответ валит весь аудит
// независимо от процента.
type CriticalRule string

const (
	// CriticalFlagged провал + ответ помечен (flagged).
	CriticalFlagged CriticalRule = "flagged"
	// CriticalFlaggedOrQuestion дополнительно провал по вопросу с isCritical.
	CriticalFlaggedOrQuestion CriticalRule = "flagged_or_critical"
)

type Policy struct {
	Unanswered UnansweredPolicy
	Critical   CriticalRule
}

func DefaultPolicy() Policy {
	return Policy{Unanswered: UnansweredUngraded, Critical: CriticalFlagged}
}

func ParseUnansweredPolicy(s string) (UnansweredPolicy, error) {
	switch p := UnansweredPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case UnansweredUngraded, UnansweredPass, UnansweredFail:
		return p, nil
	case "":
		return UnansweredUngraded, nil
	}
	return "", fmt.Errorf("unknown unanswered policy %q", s)
}

func ParseCriticalRule(s string) (CriticalRule, error) {
	switch r := CriticalRule(strings.ToLower(strings.TrimSpace(s))); r {
	case CriticalFlagged, CriticalFlaggedOrQuestion:
		return r, nil
	case "":
		return CriticalFlagged, nil
	}
	return "", fmt.Errorf("unknown critical rule %q", s)
}

func (p UnansweredPolicy) passed() *bool {
	switch p {
	case UnansweredPass:
		return boolPtr(true)
	case UnansweredFail:
		return boolPtr(false)
	}
	return nil
}

func boolPtr(v bool) *bool { return &v }
