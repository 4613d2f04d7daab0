// Package authgate decides what a role-scoped layout may render for the
// current session.
package authgate

import (
	"fmt"

	"github.com/commissionhub/portal/internal/session"
)

// Requirement is the role a layout demands. The zero value demands only an
// authenticated session.
type Requirement string

const (
	RequireNone     Requirement = ""
	RequireAdmin    Requirement = Requirement(session.RoleAdmin)
	RequirePartner  Requirement = Requirement(session.RolePartner)
	RequireCustomer Requirement = Requirement(session.RoleCustomer)
)

// ParseRequirement converts a layout's configured role to a Requirement.
// The empty string and "none" both mean RequireNone.
func ParseRequirement(s string) (Requirement, error) {
	switch s {
	case "", "none":
		return RequireNone, nil
	}
	r, err := session.ParseRole(s)
	if err != nil {
		return RequireNone, fmt.Errorf("parsing requirement: %w", err)
	}
	return Requirement(r), nil
}

func (r Requirement) String() string {
	if r == RequireNone {
		return "none"
	}
	return string(r)
}

// SatisfiedBy reports whether s carries the required role. It does not look
// at the session status.
func (r Requirement) SatisfiedBy(s session.Session) bool {
	if r == RequireNone {
		return true
	}
	return s.HasRole(session.Role(r))
}

// Outcome is what the layout does for a request.
type Outcome int

const (
	OutcomeLoading Outcome = iota
	OutcomeRender
	OutcomeDenyUnauthorized
	OutcomeSignIn
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoading:
		return "loading"
	case OutcomeRender:
		return "render"
	case OutcomeDenyUnauthorized:
		return "deny"
	case OutcomeSignIn:
		return "sign_in"
	case OutcomeError:
		return "error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Decision is the result of Evaluate.
type Decision struct {
	Outcome     Outcome
	Requirement Requirement
	Status      session.Status
}

// Evaluate applies the gate table:
//
//	unresolved, loading  -> loading placeholder
//	authenticated        -> render if satisfied, else deny
//	anonymous            -> sign in
//	error                -> recoverable error
//
// Protected content is rendered only for an authenticated session that
// satisfies r.
func Evaluate(r Requirement, s session.Session) Decision {
	d := Decision{Requirement: r, Status: s.Status}

	switch s.Status {
	case session.StatusAuthenticated:
		if r.SatisfiedBy(s) {
			d.Outcome = OutcomeRender
		} else {
			d.Outcome = OutcomeDenyUnauthorized
		}
	case session.StatusAnonymous:
		d.Outcome = OutcomeSignIn
	case session.StatusError:
		d.Outcome = OutcomeError
	default:
		d.Outcome = OutcomeLoading
	}

	return d
}
