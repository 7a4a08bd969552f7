package account

const currency = "GBP"

type Summary struct {
	ID             int64  `json:"id"`
	MaskedNumber   string `json:"maskedNumber"`
	Type           Type   `json:"accountType"`
	Balance        string `json:"balance"`
	DisplayBalance string `json:"displayBalance"`
	Status         Status `json:"status"`
}

func Summarize(s Snapshot) []Summary {
	summaries := make([]Summary, 0, len(s))
	for _, a := range s {
		summaries = append(summaries, Summary{
			ID:             a.ID,
			MaskedNumber:   a.MaskedNumber(),
			Type:           a.Type,
			Balance:        a.Balance.String(),
			DisplayBalance: a.Balance.Display(currency),
			Status:         a.Status,
		})
	}
	return summaries
}
