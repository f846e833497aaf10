package activitypub

// Visibility classification over literal to/cc recipient sets. The three
// predicates are mutually exclusive over the canonical addressing patterns;
// sets matching none of them have no defined tier.

// IsPublic reports whether the Public collection is addressed directly
func IsPublic(to, cc []string) bool {
	return contains(to, PublicCollection)
}

// IsFollowersOnly reports whether the Public collection is absent entirely
func IsFollowersOnly(to, cc []string) bool {
	return !contains(to, PublicCollection) && !contains(cc, PublicCollection)
}

// IsUnlisted reports whether the note is addressed to specific recipients
// with the Public collection demoted to cc
func IsUnlisted(to, cc []string) bool {
	hasNonPublicTo := false
	for _, uri := range to {
		if uri != PublicCollection {
			hasNonPublicTo = true
			break
		}
	}
	return hasNonPublicTo && contains(cc, PublicCollection)
}

// ReplyAddressing computes the to/cc sets of a reply from its parent's
// visibility tier. The reply keeps the parent's tier: Public stays public,
// unlisted stays unlisted, followers-only stays restricted, and mentioned
// actors are always included so the mention reaches its target.
func ReplyAddressing(parentTo, parentCc []string, followersURI string, mentioned []string) (to []string, cc []string) {
	switch {
	case IsPublic(parentTo, parentCc):
		to = []string{PublicCollection}
		cc = append([]string{followersURI}, mentioned...)
	case IsUnlisted(parentTo, parentCc):
		to = append([]string{followersURI}, mentioned...)
		cc = []string{PublicCollection}
	default:
		to = []string{followersURI}
		cc = append([]string{}, mentioned...)
	}
	return to, cc
}

func contains(uris []string, uri string) bool {
	for _, u := range uris {
		if u == uri {
			return true
		}
	}
	return false
}
