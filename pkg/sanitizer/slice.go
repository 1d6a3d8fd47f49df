package sanitizer

// NormalizeStringSlice applies normalizer to each item and drops empty and
// repeated results. First occurrence order is kept.
func NormalizeStringSlice(items []string, normalizer Strategy) []string {
	if len(items) == 0 {
		return []string{}
	}

	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))

	for _, item := range items {
		normalized := normalizer(item)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		result = append(result, normalized)
	}

	return result
}

func NormalizeIDs(ids []string) []string {
	return NormalizeStringSlice(ids, SanitizeID)
}
