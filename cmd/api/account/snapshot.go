package account

import "strings"

// Snapshot is the client-side view of a user's accounts used to populate
// account selection. Balances in it may be stale.
type Snapshot []Account

func (s Snapshot) Find(number string) (Account, bool) {
	number = strings.TrimSpace(number)
	for _, a := range s {
		if a.Number == number {
			return a, true
		}
	}
	return Account{}, false
}

func (s Snapshot) FindByID(id int64) (Account, bool) {
	for _, a := range s {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// FindOpen returns the account only when it exists and is open.
func (s Snapshot) FindOpen(number string) (Account, bool) {
	a, ok := s.Find(number)
	if !ok || !a.IsOpen() {
		return Account{}, false
	}
	return a, true
}

func (s Snapshot) Replace(updated Account) Snapshot {
	out := make(Snapshot, len(s))
	copy(out, s)
	for i := range out {
		if out[i].ID == updated.ID {
			out[i] = updated
		}
	}
	return out
}
