package http

import (
	"context"
	"sort"
)

// CountNamespaces lists the store's namespaces with their passage counts,
// sorted by name.
//
// Returns an empty slice if listing fails. A namespace whose count cannot
// be read is reported with -1.
func CountNamespaces(ctx context.Context, store NamespaceStore) []NamespaceCount {
	out := []NamespaceCount{}
	if store == nil {
		return out
	}

	names, err := store.ListCollections(ctx)
	if err != nil {
		return out
	}
	sort.Strings(names)

	for _, name := range names {
		n, err := store.Count(ctx, name)
		if err != nil {
			n = -1
		}
		out = append(out, NamespaceCount{Name: name, Passages: n})
	}
	return out
}
