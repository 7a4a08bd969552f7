package transaction

import (
	"sort"
	"strings"

	"github.com/tamasbrandstadter/banking-gateway/internal/bankapi"
)

type Filter struct {
	Type   string
	Search string
}

// History narrows a transaction list by type and free text, newest first.
// Search matches the description case-insensitively or the amount text.
func History(txs []bankapi.Transaction, f Filter) []bankapi.Transaction {
	kind := strings.ToLower(strings.TrimSpace(f.Type))
	term := strings.ToLower(strings.TrimSpace(f.Search))

	filtered := make([]bankapi.Transaction, 0, len(txs))
	for _, tx := range txs {
		if kind != "" && kind != "all" && strings.ToLower(tx.Type) != kind {
			continue
		}

		if term != "" &&
			!strings.Contains(strings.ToLower(tx.Description), term) &&
			!strings.Contains(tx.Amount.String(), term) {
			continue
		}

		filtered = append(filtered, tx)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].ID > filtered[j].ID
		}
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	return filtered
}
