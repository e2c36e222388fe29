package rules

// MergeSuites merges suites left to right: a later suite's test replaces
// an earlier test of the same name wholesale; a test with a name not yet
// seen is appended. The result does not depend on how the suites are
// grouped (associative) and merging a suite with itself changes nothing
// (idempotent), since each test name's body is always taken from its
// last occurrence in argument order.
func MergeSuites(suites ...Suite) Suite {
	var merged Suite
	index := make(map[string]int)

	for _, s := range suites {
		if merged.Fmt == 0 {
			merged.Fmt = s.Fmt
		}
		for _, t := range s.Tests {
			if i, ok := index[t.Name]; ok {
				merged.Tests[i] = t
				continue
			}
			index[t.Name] = len(merged.Tests)
			merged.Tests = append(merged.Tests, t)
		}
	}
	return merged
}
