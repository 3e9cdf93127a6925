package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"chatbank-agent/internal/domain"
	"chatbank-agent/internal/nlu"
	"chatbank-agent/internal/twophase"
)

const (
	maxBanksShown     = 20
	maxHistoryLines   = 10
	maxPeopleLines    = 10
	historyDateLayout = "02 Jan"
)

func (a *Agent) balance(ctx context.Context, t turn) string {
	return a.followUps.Respond(ctx, t.userID, twophase.Unit{
		Kind:    "balance",
		Fillers: balanceFillers,
		Apology: balanceApology,
		Work: func(ctx context.Context) (string, error) {
			kobo, err := a.ngnBalance(ctx)
			if err != nil {
				return "", newError(ErrorBackground, "balance", err)
			}
			amount := domain.FormatKobo(kobo)
			fallback := fmt.Sprintf("💰 Your balance is **%s**.", amount)
			return a.phrase(ctx, t.text, "The user's available balance is exactly "+amount+". Tell them, keeping the amount unchanged.", fallback), nil
		},
	})
}

func (a *Agent) history(ctx context.Context, t turn) string {
	window := nlu.ParseTimeWindow(t.text, a.now())
	return a.followUps.Respond(ctx, t.userID, twophase.Unit{
		Kind:    "history",
		Fillers: historyFillers,
		Apology: historyApology,
		Work: func(ctx context.Context) (string, error) {
			transfers, err := a.transfersIn(ctx, t.userID, window)
			if err != nil {
				return "", newError(ErrorBackground, "history", err)
			}
			if t.intent == domain.IntentPeopleSentMoney {
				return peopleSummary(transfers, window.Label), nil
			}
			return historySummary(transfers, window.Label), nil
		},
	})
}

// transfersIn lists the payments provider's transfers in w, falling back to
// the local log when the provider is unavailable.
func (a *Agent) transfersIn(ctx context.Context, userID string, w nlu.TimeWindow) ([]domain.Transfer, error) {
	transfers, err := a.payments.ListTransfers(ctx, w.From, w.To)
	if err == nil {
		return transfers, nil
	}
	a.log.Warn("payments transfer list failed, using local log", errorFields(newError(ErrorUpstream, "payments_list_transfers_error", err)))
	local, lerr := a.local.ListTransfers(ctx, userID, w.From, w.To)
	if lerr != nil {
		return nil, fmt.Errorf("usecase: list transfers: %w", lerr)
	}
	return local, nil
}

// during turns a window label into a phrase that follows a verb, e.g.
// "today" or "in the last 7 days".
func during(label string) string {
	if strings.HasPrefix(label, "the ") {
		return "in " + label
	}
	return label
}

func historySummary(transfers []domain.Transfer, label string) string {
	if len(transfers) == 0 {
		return fmt.Sprintf("You haven't sent any money %s. 📭", during(label))
	}
	sorted := append([]domain.Transfer(nil), transfers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })

	var total int64
	for _, tr := range sorted {
		total += tr.AmountMinor
	}
	noun := "transfers"
	if len(sorted) == 1 {
		noun = "transfer"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 **Your transfers %s**\n\nYou made %d %s totalling %s.\n",
		during(label), len(sorted), noun, domain.FormatKobo(total))
	for i, tr := range sorted {
		if i == maxHistoryLines {
			fmt.Fprintf(&b, "\n... and %d more.", len(sorted)-maxHistoryLines)
			break
		}
		name := tr.RecipientName
		if name == "" {
			name = tr.AccountNumber
		}
		fmt.Fprintf(&b, "\n• %s: %s to %s (%s)", tr.CreatedAt.Format(historyDateLayout), domain.FormatKobo(tr.AmountMinor), name, tr.Status)
	}
	return b.String()
}

type payeeTotal struct {
	name  string
	total int64
	count int
}

func peopleSummary(transfers []domain.Transfer, label string) string {
	if len(transfers) == 0 {
		return fmt.Sprintf("You haven't sent money to anyone %s. 📭", during(label))
	}
	byName := make(map[string]*payeeTotal)
	var order []*payeeTotal
	for _, tr := range transfers {
		name := tr.RecipientName
		if name == "" {
			name = tr.AccountNumber
		}
		key := strings.ToLower(name)
		p, ok := byName[key]
		if !ok {
			p = &payeeTotal{name: name}
			byName[key] = p
			order = append(order, p)
		}
		p.total += tr.AmountMinor
		p.count++
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].total > order[j].total })

	var b strings.Builder
	fmt.Fprintf(&b, "👥 **People you sent money to %s**\n", during(label))
	for i, p := range order {
		if i == maxPeopleLines {
			fmt.Fprintf(&b, "\n... and %d more.", len(order)-maxPeopleLines)
			break
		}
		noun := "transfers"
		if p.count == 1 {
			noun = "transfer"
		}
		fmt.Fprintf(&b, "\n• %s: %s (%d %s)", p.name, domain.FormatKobo(p.total), p.count, noun)
	}
	return b.String()
}

func (a *Agent) banks(ctx context.Context) string {
	banks, err := a.payments.ListBanks(ctx)
	if err != nil {
		a.log.Warn("bank list failed", errorFields(newError(ErrorUpstream, "payments_list_banks_error", err)))
		return banksUnavailableReply
	}
	if len(banks) == 0 {
		return banksUnavailableReply
	}
	var b strings.Builder
	b.WriteString("🏦 **Available Banks:**\n")
	for i, bank := range banks {
		if i == maxBanksShown {
			fmt.Fprintf(&b, "\n... and %d more banks.", len(banks)-maxBanksShown)
			break
		}
		fmt.Fprintf(&b, "\n• %s", bank.Name)
	}
	return b.String()
}
