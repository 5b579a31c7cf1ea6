package domain

// Classification is the reconciliation outcome for a single document id.
type Classification int

const (
	// ClassUnchanged means the hash matches the prior record; no action.
	ClassUnchanged Classification = iota

	// ClassAdded means the id has no prior record.
	ClassAdded

	// ClassModified means the hash differs from the prior record.
	ClassModified

	// ClassDeleted means a prior record exists but the source no
	// longer lists the id.
	ClassDeleted
)

// String returns the lowercase name of the classification.
func (c Classification) String() string {
	switch c {
	case ClassUnchanged:
		return "unchanged"
	case ClassAdded:
		return "added"
	case ClassModified:
		return "modified"
	case ClassDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// MutationPlan is the transient output of reconciliation: the minimal
// set of index mutations needed to bring the index back into agreement
// with the source. It is regenerated every cycle and never persisted.
//
// ToUpsert and ToDelete are disjoint by construction: an id is either
// present in the current listing or absent from it, never both.
type MutationPlan struct {
	// ToUpsert lists ids classified Added or Modified, in listing order.
	ToUpsert []string

	// ToDelete lists ids classified Deleted, in stable order.
	ToDelete []string

	// Unchanged counts ids left untouched.
	Unchanged int

	// Excluded records documents the source enumerated but could not
	// read this cycle. They are neither upserted nor deleted; each is
	// reported as a per-document failure and retried next cycle.
	Excluded []DocumentFailure

	// Class records the classification of every id seen on either
	// side of the comparison.
	Class map[string]Classification
}

// IsEmpty reports whether the plan requires no index mutations.
func (p *MutationPlan) IsEmpty() bool {
	return len(p.ToUpsert) == 0 && len(p.ToDelete) == 0
}
