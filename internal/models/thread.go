package models

const threadKeySeparator = "_"

// ResolveThreadKey derives the canonical key for the two-party thread
// between users a and b. The two ids are joined in lexicographic order,
// so ResolveThreadKey(a, b) == ResolveThreadKey(b, a). Ids must not
// contain the separator; callers uphold this (user ids are uuids).
func ResolveThreadKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + threadKeySeparator + b
}
