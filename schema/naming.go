package schema

// JSONKey returns the JSON name of the field, deriving lowerCamelCase from the
// proto name when no explicit json_name was given.
func (f *Field) JSONKey() string {
	if f.JsonName != "" {
		return f.JsonName
	}
	return ToLowerCamel(f.Name)
}

// ToLowerCamel converts snake_case to lowerCamelCase the way protoc derives json_name.
func ToLowerCamel(s string) string {
	if s == "" {
		return s
	}
	// Fast path: no underscore
	hasUnderscore := false
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			hasUnderscore = true
			break
		}
	}
	if !hasUnderscore {
		return s
	}
	out := make([]byte, 0, len(s))
	upperNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if upperNext && c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
		}
		upperNext = false
		out = append(out, c)
	}
	return string(out)
}
