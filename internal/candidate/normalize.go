package candidate

import "strings"

// Excluder reports whether an identity is already known.
type Excluder interface {
	Has(identity string) bool
}

// Normalize projects raw items onto Record, dropping items whose identity is
// excluded, empty, or already seen earlier in the same batch. Output order
// follows input order.
func Normalize(raw []RawItem, excluded Excluder) []Record {
	out := make([]Record, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		identity := strings.TrimSpace(item.HTMLURL)
		if identity == "" {
			continue
		}
		if excluded != nil && excluded.Has(identity) {
			continue
		}
		if _, dup := seen[identity]; dup {
			continue
		}
		seen[identity] = struct{}{}
		out = append(out, project(item, identity))
	}
	return out
}

func project(item RawItem, identity string) Record {
	description := ""
	if item.Description != nil {
		description = *item.Description
	}
	return Record{
		FullName:    strings.TrimSpace(item.FullName),
		HTMLURL:     identity,
		Stars:       item.Stars,
		Forks:       item.Forks,
		Watchers:    item.Watchers,
		OpenIssues:  item.OpenIssues,
		Language:    item.Language,
		Description: description,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
		PushedAt:    item.PushedAt,
		License:     item.License,
	}
}
