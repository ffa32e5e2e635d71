package facematch

import "strings"

// GuestSlug derives the guest folder segment from a display name:
// lower-cased, every non-alphanumeric character replaced with an
// underscore. "Jane Doe" becomes "jane_doe".
func GuestSlug(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
