package aggregation

import (
	"sort"

	"github.com/NomadCrew/nomad-budget-backend/pkg/valueobjects"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/shopspring/decimal"
)

// MemberBalance is what one participant paid against what they owe.
// Net is positive when the others owe this participant.
type MemberBalance struct {
	Participant string          `json:"participant"`
	Paid        decimal.Decimal `json:"paid"`
	Owed        decimal.Decimal `json:"owed"`
	Net         decimal.Decimal `json:"net"`
}

// Balances splits every expense evenly across its SplitWith participants, or
// across all members when SplitWith is empty, and nets it against what each
// payer paid. Splits are exact to the minor unit.
func Balances(expenses []types.Expense, members []types.Member) []MemberBalance {
	everyone := make([]string, 0, len(members))
	for _, m := range members {
		if m.ID != "" {
			everyone = append(everyone, m.ID)
		}
	}

	byName := make(map[string]*MemberBalance)
	get := func(name string) *MemberBalance {
		b, ok := byName[name]
		if !ok {
			b = &MemberBalance{Participant: name}
			byName[name] = b
		}
		return b
	}

	for _, e := range expenses {
		if !e.Amount.IsPositive() {
			continue
		}
		payer := e.PaidBy
		if payer == "" {
			payer = types.DefaultPayer
		}
		participants := e.SplitWith
		if len(participants) == 0 {
			participants = everyone
		}
		if len(participants) == 0 {
			participants = []string{payer}
		}

		get(payer).Paid = get(payer).Paid.Add(e.Amount)

		amount, err := valueobjects.NewMoney(e.Amount.Round(2), valueobjects.DefaultCurrency)
		if err != nil {
			continue
		}
		shares, err := amount.Split(len(participants))
		if err != nil {
			continue
		}
		for i, p := range participants {
			get(p).Owed = get(p).Owed.Add(shares[i].Amount())
		}
	}

	out := make([]MemberBalance, 0, len(byName))
	for _, b := range byName {
		b.Net = b.Paid.Sub(b.Owed)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Participant < out[j].Participant })
	return out
}
