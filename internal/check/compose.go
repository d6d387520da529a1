package check

import (
	"sort"

	"amfcheck/internal/cv"
)

// Compose builds the top-level wrapper suites: one per discovered product
// and deployment mode. Each wrapper includes, in order, the global tier, the
// common tier for its mode and the product's own suites, each tier sorted by
// namespace. A product with no common suites for a mode still gets a wrapper.
//
// sources are CV-backed suites with facets [product, <name>, ...] or
// [product, common, <type>, <mode>]; anything else is ignored.
func Compose(global, sources []*Suite, modes []cv.DeploymentMode) []*Suite {
	common := make(map[string][]*Suite)
	products := make(map[string][]*Suite)
	for _, s := range sources {
		f := s.facets
		if len(f) <= 2 || f[0] != "product" {
			continue
		}
		if f[1] == "common" {
			mode := f[len(f)-1]
			common[mode] = append(common[mode], s)
			continue
		}
		products[f[1]] = append(products[f[1]], s)
	}

	names := make([]string, 0, len(products))
	for name := range products {
		names = append(names, name)
	}
	sort.Strings(names)

	globalTier := includes(global)
	var out []*Suite
	for _, name := range names {
		productTier := includes(products[name])
		for _, mode := range modes {
			checks := make([]Check, 0, len(globalTier)+len(productTier))
			checks = append(checks, globalTier...)
			checks = append(checks, includes(common[string(mode)])...)
			checks = append(checks, productTier...)
			out = append(out, NewSuite([]string{"product", name, string(mode)}, checks))
		}
	}
	return out
}

// includes returns one __INCLUDE__ check per suite, sorted by namespace.
func includes(suites []*Suite) []Check {
	sorted := append([]*Suite{}, suites...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].namespace < sorted[j].namespace })
	checks := make([]Check, len(sorted))
	for i, s := range sorted {
		checks[i] = Check{Include: s.Filename()}
	}
	return checks
}
