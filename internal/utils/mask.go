package utils

// MaskSecret keeps the first four characters of secrets long enough that
// doing so does not give most of them away.
func MaskSecret(s string) string {
	const keep = 4
	if len(s) <= 2*keep {
		return "*****"
	}
	return s[:keep] + "*****"
}
