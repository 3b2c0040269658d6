package reader

import "github.com/someoneonearthwholovestg/el-monitorro/internal/models"

// Dedup drops an entry when both its link and title equal those of the entry
// kept right before it. Only neighbours are compared: [A, A, B, A] becomes
// [A, B, A].
func Dedup(entries []models.NormalizedEntry) []models.NormalizedEntry {
	out := make([]models.NormalizedEntry, 0, len(entries))
	for _, entry := range entries {
		if n := len(out); n > 0 {
			prev := out[n-1]
			if prev.Link == entry.Link && prev.Title == entry.Title {
				continue
			}
		}
		out = append(out, entry)
	}
	return out
}
