// Package incidents narrows the incident feed for display.
package incidents

import "github.com/conradoqg/statuspage-dashboard/internal/model"

// Filter returns, in their original order, the incidents whose provider is
// exactly provider, truncated to limit. An empty provider matches every
// incident; a limit of zero or less means no limit. The input is not
// modified and the result never aliases it.
func Filter(list []model.Incident, provider string, limit int) []model.Incident {
	out := make([]model.Incident, 0, capacity(len(list), limit))
	for _, inc := range list {
		if limit > 0 && len(out) == limit {
			break
		}
		if provider != "" && inc.Provider != provider {
			continue
		}
		out = append(out, inc)
	}
	return out
}

// Page skips offset incidents and returns at most limit of the rest.
func Page(list []model.Incident, offset, limit int) []model.Incident {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []model.Incident{}
	}
	return Filter(list[offset:], "", limit)
}

func capacity(n, limit int) int {
	if limit > 0 && limit < n {
		return limit
	}
	return n
}
