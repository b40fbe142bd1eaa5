// Package authz decides row-level access for owner-keyed records.
//
// The gate is a pure function of (verified subject, record owner, resource,
// operation, trust level). It performs no lookups and holds no state, so it can
// run at the data-access boundary on every call.
package authz

// Operation is the requested row access.
type Operation int

const (
	OpRead Operation = iota
	OpInsert
	OpUpdate
	OpDelete
)

// Resource is the kind of row being accessed.
type Resource int

const (
	ResourceUser Resource = iota
	ResourceProgress
)

// TrustLevel tags the execution context of the caller. The privileged level is
// an explicit tag set only by the backend's own service identity, never
// inferred from credentials.
type TrustLevel int

const (
	Untrusted TrustLevel = iota
	PrivilegedOperator
)

// Decision is the gate outcome. Deny is a normal result, not an error.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// Principal is a verified caller identity plus its trust level.
type Principal struct {
	SubjectID string
	Trust     TrustLevel
}

// Operator returns the backend's own service identity.
func Operator() Principal {
	return Principal{Trust: PrivilegedOperator}
}

// Subject returns an end-user identity extracted from a verified token.
func Subject(id string) Principal {
	return Principal{SubjectID: id, Trust: Untrusted}
}

// Check decides whether subjectID may perform op on the row owned by ownerID.
//
// The privileged-operator path is exempt from the ownership comparison: the
// backend has already authenticated the end user through its own token
// verification before calling in. Inserting a user row is allowed for any
// caller because signup necessarily precedes identity; the created row's owner
// becomes the new subject. Everything else requires exact identity equality:
// no case folding, no prefix matching, and an empty subject is always denied.
func Check(subjectID, ownerID string, res Resource, op Operation, trust TrustLevel) Decision {
	if trust == PrivilegedOperator {
		return Allow
	}
	if res == ResourceUser && op == OpInsert {
		return Allow
	}
	if subjectID == "" {
		return Deny
	}
	if subjectID == ownerID {
		return Allow
	}
	return Deny
}

// Allowed is a convenience wrapper for principal-based call sites.
func (p Principal) Allowed(ownerID string, res Resource, op Operation) bool {
	return Check(p.SubjectID, ownerID, res, op, p.Trust) == Allow
}
