package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/quantclear/fofnav/internal/fin"
	"github.com/quantclear/fofnav/internal/ledger"
	"github.com/quantclear/fofnav/internal/model"
	"github.com/quantclear/fofnav/internal/valuation"
)

// investorPositions summarizes every investor's surviving lots at the latest
// committed NAV. The virtual NAV uses the accumulated-NAV variant against the
// investor's own per-lot water lines, so two investors holding the same FOF
// see different effective NAVs when their entry points differ.
func investorPositions(p model.Product, state *ledger.State, policy valuation.AssetHighWaterMark) []model.InvestorPosition {
	ids := make([]string, 0, len(state.InvestorContrib))
	for id := range state.InvestorContrib {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.InvestorPosition, 0, len(ids))
	for _, id := range ids {
		lots := state.InvestorLots[id]
		leftShare := model.TotalShare(lots)
		leftAmount := decimal.Zero
		for _, l := range lots {
			leftAmount = leftAmount.Add(l.RemainingAmount)
		}

		vnav := state.LastNav
		if v, ok := policy.VirtualNavAccumulated(lots, state.LastNav); ok {
			vnav = v
		}
		mv := fin.RoundAmount(vnav.Mul(leftShare))
		ret := mv.Sub(fin.RoundAmount(leftAmount))
		rr := decimal.Zero
		if leftAmount.IsPositive() {
			rr = fin.RoundNav(ret.Div(leftAmount), fin.NavPlaces)
		}

		out = append(out, model.InvestorPosition{
			FofID:      p.ID,
			InvestorID: id,
			Amount:     state.InvestorContrib[id],
			LeftAmount: fin.RoundAmount(leftAmount),
			Share:      state.InvestorShareTotal[id],
			LeftShare:  leftShare,
			VNav:       vnav,
			MV:         mv,
			TotalRet:   ret,
			TotalRR:    rr,
		})
	}
	return out
}

// positionDetails builds the latest-only per-fund detail rows: each open
// lot's confirmation NAV and water line, the latest observed and virtual
// NAVs, and the holding's aggregate cost and return.
func positionDetails(snap Snapshot, state *ledger.State, policy valuation.AssetHighWaterMark, lastVNav map[string]decimal.Decimal) []model.PositionDetailRow {
	out := make([]model.PositionDetailRow, 0, len(state.Shares))
	for _, fundID := range sortedFunds(state.Shares) {
		row := model.PositionDetailRow{
			FofID:      snap.Product.ID,
			FundID:     fundID,
			AssetType:  state.AssetTypes[fundID],
			TotalShare: state.Shares[fundID],
			TotalCost:  fin.RoundAmount(state.Costs[fundID]),
			VNav:       lastVNav[fundID],
		}
		for _, lot := range state.Lots[fundID] {
			row.ConfirmedNav = append(row.ConfirmedNav, lot.OpenNav)
			row.WaterLine = append(row.WaterLine, lot.WaterLine)
		}
		if series, ok := snap.Prices[fundID]; ok {
			if point, ok := series.Last(); ok {
				row.UnitNav = point.UnitNav
				row.AccNav = point.AccNav
			}
		}

		switch {
		case row.AssetType == model.AssetHedge && len(state.Lots[fundID]) > 0:
			acc := row.AccNav
			if acc.IsZero() {
				acc = row.UnitNav
			}
			row.LatestMV = policy.NetMarketValue(state.Lots[fundID], row.UnitNav, acc)
		case row.TotalShare.IsPositive() && row.VNav.IsPositive():
			row.LatestMV = fin.RoundAmount(row.TotalShare.Mul(row.VNav))
		}

		row.TotalRet = row.LatestMV.Sub(row.TotalCost)
		if row.TotalCost.IsPositive() {
			row.TotalRR = fin.RoundNav(row.TotalRet.Div(row.TotalCost), fin.NavPlaces)
		}
		out = append(out, row)
	}
	return out
}
