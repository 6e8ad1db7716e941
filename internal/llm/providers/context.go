package providers

import (
	"fmt"
	"sort"
	"strings"
)

// coherencePreamble renders already-resolved field values as a system-level
// instruction so the backend produces output consistent with them. Keys are
// sorted for a stable prompt; names with a leading underscore are internal
// engine bookkeeping and are skipped.
func coherencePreamble(context map[string]any) string {
	if len(context) == 0 {
		return ""
	}

	keys := make([]string, 0, len(context))
	for k := range context {
		if strings.HasPrefix(k, "_") {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("You are generating one field of a synthetic record. ")
	sb.WriteString("Values already chosen for this record:\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "- %s: %v\n", k, context[k])
	}
	sb.WriteString("Produce a value consistent with them. Respond with the value only, no explanation.")
	return sb.String()
}
