package catalog

// SelectForRemoval returns the oldest entries that fall outside the
// keep-count: all but the newest keep entries. keep <= 0 selects nothing;
// callers treat an unset keep-count as "retention disabled" and should not
// invoke removal at all. Pure function of (set, keep).
func SelectForRemoval(set Set, keep int) []Entry {
	if keep <= 0 {
		return nil
	}
	if len(set) <= keep {
		return nil
	}
	return set[:len(set)-keep]
}
