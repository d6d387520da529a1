package archive

// archive.go — write vocabularies to a term archive.
//
// One vocabulary becomes one collection named by its namespace; each entry
// becomes a term carrying the entry's attributes as data. Product terms carry
// no data. The archive itself is behind Store so the pyessv layout (or any
// other) stays out of the core.

import (
	"fmt"
	"sort"

	"amfcheck/internal/cv"
)

// Store is a term archive.
type Store interface {
	CreateCollection(namespace, description string) error
	CreateTerm(collection, name string, data map[string]any) error
	Commit() error
}

// Write adds every vocabulary to store and commits. It returns the written
// collection namespaces in input order.
func Write(store Store, vocabs []*cv.Vocabulary) ([]string, error) {
	var written []string
	for _, v := range vocabs {
		ns := v.Namespace()
		desc := fmt.Sprintf("AMF CV for %s", ns)
		if err := store.CreateCollection(ns, desc); err != nil {
			return written, fmt.Errorf("collection %s: %w", ns, err)
		}
		if v.Kind() == cv.KindProduct {
			for _, term := range v.Terms() {
				if err := store.CreateTerm(ns, term, nil); err != nil {
					return written, fmt.Errorf("collection %s: term %q: %w", ns, term, err)
				}
			}
		} else {
			for _, e := range v.Entries() {
				data := make(map[string]any, len(e.Attrs))
				for _, a := range e.Attrs {
					data[a.Name] = a.Value.Interface()
				}
				if err := store.CreateTerm(ns, e.Name, data); err != nil {
					return written, fmt.Errorf("collection %s: term %q: %w", ns, e.Name, err)
				}
			}
		}
		written = append(written, ns)
	}
	if err := store.Commit(); err != nil {
		return written, fmt.Errorf("commit archive: %w", err)
	}
	if len(written) != len(vocabs) {
		return written, fmt.Errorf("archive wrote %d of %d collections: missing %v",
			len(written), len(vocabs), missing(vocabs, written))
	}
	return written, nil
}

func missing(vocabs []*cv.Vocabulary, written []string) []string {
	have := make(map[string]bool, len(written))
	for _, w := range written {
		have[w] = true
	}
	var out []string
	for _, v := range vocabs {
		if !have[v.Namespace()] {
			out = append(out, v.Namespace())
		}
	}
	sort.Strings(out)
	return out
}
