package registry

// Salvage is a best-effort recovery of a truncated JSON object, typically left behind by an
// interrupted write. The text is cut one byte shorter at a time, starting just before its
// end, a closing brace is appended, and the first prefix that decodes into T wins.
//
// Recovery is lossy. The last, possibly partial, key-value pair is always dropped, and data
// that is structurally present but sits after the first damaged spot is not recovered.
// It returns the decoded value, the length of the prefix used and whether anything decoded.
func Salvage[T any](data []byte) (T, int, bool) {
	buf := make([]byte, 0, len(data)+1)
	for n := len(data) - 1; n > 0; n-- {
		buf = append(buf[:0], data[:n]...)
		buf = append(buf, '}')
		var v T
		if err := json.Unmarshal(buf, &v); err == nil {
			return v, n, true
		}
	}
	var zero T
	return zero, 0, false
}
