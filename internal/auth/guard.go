// Package auth holds the stateless trust boundary: deriving a caller
// identity from a bearer token and deciding whether an operation with
// declared capability requirements may proceed.
package auth

import (
	"errors"
	"strings"
)

// Capabilities with special handling in Authorize. Any other string is
// matched against the caller's role and permission list.
const (
	CapabilityVerified  = "VERIFIED"
	CapabilityIsOwnUser = "IS_OWN_USER"
)

// ErrMalformedToken means a credential was supplied but does not match
// the "Bearer <token>" format. This fails the request outright instead
// of degrading to anonymous.
var ErrMalformedToken = errors.New("authentication header format must be: 'Bearer [token]'")

// Identity is the verified claim set of the current caller. A request
// is either anonymous (nil identity) or authenticated; the state is
// fixed once at derivation time.
type Identity struct {
	ID          string
	Email       string
	Name        string
	Role        string
	Permissions []string
	Verified    bool
}

// ParseBearer extracts the raw token from a "Bearer <token>" value.
func ParseBearer(value string) (string, error) {
	token, found := strings.CutPrefix(value, "Bearer ")
	if !found || token == "" {
		return "", ErrMalformedToken
	}
	return token, nil
}

// Authorize decides whether a caller may run an operation that
// declares the given required capabilities. targetID is the
// operation's target-record argument, consulted only for ownership
// checks. The rules are evaluated strictly in order:
//
//  1. nothing required: permit any authenticated caller;
//  2. no caller: deny;
//  3. VERIFIED required: permit iff the caller's account is verified;
//  4. IS_OWN_USER required and the target is the caller's own record:
//     permit;
//  5. permit iff a required capability matches the caller's role or
//     appears in the caller's permission list;
//  6. deny.
func Authorize(required []string, caller *Identity, targetID string) bool {
	if len(required) == 0 {
		return caller != nil
	}
	if caller == nil {
		return false
	}

	if contains(required, CapabilityVerified) {
		return caller.Verified
	}

	if contains(required, CapabilityIsOwnUser) && targetID == caller.ID {
		return true
	}

	for _, capability := range required {
		if capability == caller.Role || contains(caller.Permissions, capability) {
			return true
		}
	}

	return false
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
