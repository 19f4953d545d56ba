package pagination

import (
	"fmt"
	"strings"
)

// ResourceKind names the record type a partition pages over (e.g. "prompts").
type ResourceKind string

// PartitionKey identifies one cache partition. It is comparable and safe to
// use as a map key; two keys are the same partition iff they are equal.
type PartitionKey struct {
	Kind ResourceKind
	Term string
}

// BuildKey derives the partition key for a kind and a (debounced) search term.
// The term is trimmed and inner white space runs are collapsed; case is kept.
func BuildKey(kind ResourceKind, rawSearchTerm string) PartitionKey {
	return PartitionKey{
		Kind: kind,
		Term: normalizeTerm(rawSearchTerm),
	}
}

// String renders a deterministic key for logs and metric labels.
// Format: pager:<kind>:term=<term>
func (k PartitionKey) String() string {
	return fmt.Sprintf("pager:%s:term=%s", k.Kind, k.Term)
}

func normalizeTerm(term string) string {
	return strings.Join(strings.Fields(term), " ")
}
