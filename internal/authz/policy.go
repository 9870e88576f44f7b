package authz

import (
	"sort"

	"github.com/noah-isme/dmr-api/internal/models"
)

// Operation is an action a caller attempts on a resource.
type Operation string

const (
	OpList       Operation = "list"
	OpRead       Operation = "read"
	OpCreate     Operation = "create"
	OpUpdate     Operation = "update"
	OpDelete     Operation = "delete"
	OpTransition Operation = "transition"
)

// Operations returns every operation.
func Operations() []Operation {
	return []Operation{OpList, OpRead, OpCreate, OpUpdate, OpDelete, OpTransition}
}

// Detail reports whether the operation acts on one loaded object.
func (o Operation) Detail() bool {
	switch o {
	case OpRead, OpUpdate, OpDelete, OpTransition:
		return true
	}
	return false
}

// OperationSet is an unordered set of operations.
type OperationSet map[Operation]struct{}

// Ops builds an OperationSet.
func Ops(ops ...Operation) OperationSet {
	set := make(OperationSet, len(ops))
	for _, op := range ops {
		set[op] = struct{}{}
	}
	return set
}

// All returns the set of every operation.
func All() OperationSet {
	return Ops(Operations()...)
}

// None returns the empty set.
func None() OperationSet {
	return OperationSet{}
}

// Has reports membership.
func (s OperationSet) Has(op Operation) bool {
	_, ok := s[op]
	return ok
}

// Sorted lists the members alphabetically.
func (s OperationSet) Sorted() []Operation {
	out := make([]Operation, 0, len(s))
	for op := range s {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Ownership selects the object level rule applied to students.
type Ownership int

const (
	// OwnershipNone applies no object level restriction.
	OwnershipNone Ownership = iota
	// OwnershipOwner limits students to records they own.
	OwnershipOwner
	// OwnershipOwnerPending is OwnershipOwner plus mutations only while pending.
	OwnershipOwnerPending
	// OwnershipFileGrant requires an approved file grant.
	OwnershipFileGrant
)

// Policy is the role by operation table for one resource.
type Policy struct {
	Resource  string
	Table     map[models.Role]OperationSet
	Ownership Ownership
}

// Allows reports whether the role may perform op at all. Administrators are
// always allowed.
func (p *Policy) Allows(role models.Role, op Operation) bool {
	if role == models.RoleAdmin {
		return true
	}
	return p.Table[role].Has(op)
}

var (
	Patients = &Policy{
		Resource: "patients",
		Table: map[models.Role]OperationSet{
			models.RoleAdmin:      All(),
			models.RoleInstructor: All(),
			models.RoleStudent:    Ops(OpList, OpRead),
		},
		Ownership: OwnershipNone,
	}

	Observations = &Policy{
		Resource: "observations",
		Table: map[models.Role]OperationSet{
			models.RoleAdmin:      All(),
			models.RoleInstructor: Ops(OpList, OpRead),
			models.RoleStudent:    Ops(OpList, OpRead, OpCreate, OpUpdate, OpDelete),
		},
		Ownership: OwnershipOwner,
	}

	DiagnosticRequests = &Policy{
		Resource: "diagnostic_requests",
		Table: map[models.Role]OperationSet{
			models.RoleAdmin:      All(),
			models.RoleInstructor: Ops(OpList, OpRead),
			models.RoleStudent:    Ops(OpList, OpRead, OpCreate, OpUpdate, OpDelete),
		},
		Ownership: OwnershipOwnerPending,
	}

	DiagnosticRequestsManagement = &Policy{
		Resource: "diagnostic_requests_management",
		Table: map[models.Role]OperationSet{
			models.RoleAdmin:      All(),
			models.RoleInstructor: All(),
			models.RoleStudent:    None(),
		},
		Ownership: OwnershipNone,
	}

	Files = &Policy{
		Resource: "files",
		Table: map[models.Role]OperationSet{
			models.RoleAdmin:      All(),
			models.RoleInstructor: All(),
			models.RoleStudent:    None(),
		},
		Ownership: OwnershipNone,
	}

	FileContent = &Policy{
		Resource: "file_content",
		Table: map[models.Role]OperationSet{
			models.RoleAdmin:      All(),
			models.RoleInstructor: Ops(OpList, OpRead),
			models.RoleStudent:    Ops(OpList, OpRead),
		},
		Ownership: OwnershipFileGrant,
	}

	FileReleases = &Policy{
		Resource: "file_releases",
		Table: map[models.Role]OperationSet{
			models.RoleAdmin:      All(),
			models.RoleInstructor: All(),
			models.RoleStudent:    None(),
		},
		Ownership: OwnershipNone,
	}

	Dashboard = &Policy{
		Resource: "dashboard",
		Table: map[models.Role]OperationSet{
			models.RoleAdmin:      All(),
			models.RoleInstructor: Ops(OpRead),
			models.RoleStudent:    None(),
		},
		Ownership: OwnershipNone,
	}
)

// Policies enumerates every registered policy.
func Policies() []*Policy {
	return []*Policy{
		Patients,
		Observations,
		DiagnosticRequests,
		DiagnosticRequestsManagement,
		Files,
		FileContent,
		FileReleases,
		Dashboard,
	}
}
