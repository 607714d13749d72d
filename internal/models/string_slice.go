package models

// StringSlice is a []string stored as a JSON column.
type StringSlice []string

// Clone returns a copy that does not share the backing array.
func (s StringSlice) Clone() StringSlice {
	if s == nil {
		return nil
	}
	out := make(StringSlice, len(s))
	copy(out, s)
	return out
}
