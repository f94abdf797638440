// Package ledger folds the event log into per-day holdings state: share
// counts per fund, cash, in-transit cash, transient receivables/payables, and
// the running fee and interest accruals. The fold is strictly day-ordered and
// replaying any prefix reproduces the same state.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantclear/fofnav/internal/apperrors"
	"github.com/quantclear/fofnav/internal/fin"
	"github.com/quantclear/fofnav/internal/model"
	"github.com/quantclear/fofnav/internal/valuation"
)

// PriceBook resolves a fund's forward-filled price observation for a date.
type PriceBook interface {
	At(fundID string, d time.Time) (model.PricePoint, bool)
}

// State is the end-of-day holdings state of one FOF. It is mutated only by
// ApplyDay and the accrual methods, in the phase order of the daily loop.
type State struct {
	FofID string

	Cash             decimal.Decimal
	CashInTransit    decimal.Decimal
	DepositInTransit decimal.Decimal

	// OtherDebt is the signed transient payable balance: positive when the
	// FOF owes cash (redemption confirmed but unpaid, purchase confirmed but
	// unsettled), negative when cash moved before confirmation.
	OtherDebt decimal.Decimal

	// Shares is the per-fund holding; rows stay at zero after termination.
	Shares     map[string]decimal.Decimal
	AssetTypes map[string]model.AssetType

	// Lots are the open hedge-fund parcels carrying their water lines.
	Lots map[string][]model.Lot

	// InvestorLots are the investors' FOF parcels, consumed FIFO on redeem.
	InvestorLots map[string][]model.Lot

	// Costs is the per-fund remaining cost basis, reduced proportionally on
	// redemption.
	Costs map[string]decimal.Decimal

	// InvestorContrib and InvestorShareTotal accumulate every confirmed
	// subscription per investor, surviving lot closure.
	InvestorContrib    map[string]decimal.Decimal
	InvestorShareTotal map[string]decimal.Decimal

	// Volume is the outstanding FOF share count.
	Volume decimal.Decimal

	// LastNav is the most recently committed FOF unit NAV, used as the
	// confirmation NAV for investor lots. Defaults to 1 before the first row.
	LastNav decimal.Decimal

	CumManagement     decimal.Decimal
	CumCustodian      decimal.Decimal
	CumAdministrative decimal.Decimal
	CumInterest       decimal.Decimal
}

// New returns the empty pre-inception state.
func New(fofID string) *State {
	return &State{
		FofID:              fofID,
		Shares:             map[string]decimal.Decimal{},
		AssetTypes:         map[string]model.AssetType{},
		Lots:               map[string][]model.Lot{},
		InvestorLots:       map[string][]model.Lot{},
		Costs:              map[string]decimal.Decimal{},
		InvestorContrib:    map[string]decimal.Decimal{},
		InvestorShareTotal: map[string]decimal.Decimal{},
		LastNav:            decimal.NewFromInt(1),
	}
}

// AccruedFees is the total accrued, untransferred fee balance.
func (s *State) AccruedFees() decimal.Decimal {
	return s.CumManagement.Add(s.CumCustodian).Add(s.CumAdministrative)
}

// ApplyDay applies every event effect landing on d, in the fixed phase order:
// investor in, investor redeem, asset purchase cash leg, asset purchase share
// leg, asset redeem share leg, asset redeem cash leg, dividends and reward
// deductions, monetary daily accrual, incidentals. Within a phase events
// apply in log order (the log is sorted by applied date, then id).
func (s *State) ApplyDay(d time.Time, events []model.Event, prices PriceBook) error {
	type phase func(*State, time.Time, model.Event, PriceBook) error
	phases := []struct {
		match func(model.Event) bool
		apply phase
	}{
		{func(e model.Event) bool { return e.IsInvestorIn() }, (*State).applyInvestorIn},
		{func(e model.Event) bool { return e.Type == model.EventInvestorRedeem }, (*State).applyInvestorRedeem},
		{func(e model.Event) bool { return e.IsAssetIn() }, (*State).applyAssetInCash},
		{func(e model.Event) bool { return e.IsAssetIn() }, (*State).applyAssetInShares},
		{func(e model.Event) bool { return e.Type == model.EventAssetRedeem }, (*State).applyAssetRedeemShares},
		{func(e model.Event) bool { return e.Type == model.EventAssetRedeem }, (*State).applyAssetRedeemCash},
		{func(e model.Event) bool {
			return e.Type == model.EventDividendCash || e.Type == model.EventDividendReinvest || e.IsDeduct()
		}, (*State).applyDistribution},
	}

	for _, ph := range phases {
		for _, e := range events {
			if e.Status == model.StatusCancelled || !ph.match(e) {
				continue
			}
			if err := ph.apply(s, d, e, prices); err != nil {
				return fmt.Errorf("event %s: %w", e.ID, err)
			}
		}
	}

	s.accrueMonetary(d, prices)

	for _, e := range events {
		if e.Status == model.StatusCancelled {
			continue
		}
		if e.Type != model.EventIncidentalIn && e.Type != model.EventIncidentalOut {
			continue
		}
		if err := s.applyIncidental(d, e); err != nil {
			return fmt.Errorf("event %s: %w", e.ID, err)
		}
	}
	return nil
}

// applyInvestorIn books a subscription or purchase. Shares are issued on the
// confirmed date, cash lands on the deposited date; a later deposit rides as
// a receivable in DepositInTransit, an earlier one as a payable in OtherDebt.
func (s *State) applyInvestorIn(d time.Time, e model.Event, _ PriceBook) error {
	if e.Amount.IsNegative() {
		return apperrors.ErrNegativeAmount
	}
	if fin.SameDay(e.ConfirmedDate, d) {
		share := e.ShareOrDerived()
		s.Volume = s.Volume.Add(share)
		s.openInvestorLot(e, share)
		switch {
		case e.DepositedDate.IsZero() || e.DepositedDate.After(d):
			s.DepositInTransit = s.DepositInTransit.Add(e.Amount)
		case e.DepositedDate.Before(fin.Day(d)):
			s.OtherDebt = s.OtherDebt.Sub(e.Amount)
		}
	}
	if fin.SameDay(e.DepositedDate, d) {
		s.Cash = s.Cash.Add(e.Amount)
		switch {
		case e.ConfirmedDate.IsZero() || e.ConfirmedDate.After(d):
			// Money received before the shares exist: owed back until confirmation.
			s.OtherDebt = s.OtherDebt.Add(e.Amount)
		case e.ConfirmedDate.Before(fin.Day(d)):
			s.DepositInTransit = s.DepositInTransit.Sub(e.Amount)
		}
	}
	return nil
}

func (s *State) openInvestorLot(e model.Event, share decimal.Decimal) {
	nav := e.Nav
	if !nav.IsPositive() {
		nav = s.LastNav
	}
	s.InvestorContrib[e.InvestorID] = s.contrib(e.InvestorID).Add(e.Amount)
	s.InvestorShareTotal[e.InvestorID] = s.shareTotal(e.InvestorID).Add(share)
	s.InvestorLots[e.InvestorID] = append(s.InvestorLots[e.InvestorID], model.Lot{
		ID:              e.ID,
		InvestorID:      e.InvestorID,
		OpenDate:        fin.Day(e.ConfirmedDate),
		OpenNav:         nav,
		OpenAmount:      e.Amount,
		OpenShare:       share,
		WaterLine:       nav,
		RemainingShare:  share,
		RemainingAmount: e.Amount,
	})
}

// applyInvestorRedeem cancels shares on the confirmed date and pays cash on
// the deposited date. Remaining lots of the investor take the redemption-date
// NAV as their new water line.
func (s *State) applyInvestorRedeem(d time.Time, e model.Event, _ PriceBook) error {
	if fin.SameDay(e.ConfirmedDate, d) {
		share := e.ShareOrDerived()
		if share.GreaterThan(s.Volume) {
			return apperrors.ErrInsufficientShares
		}
		s.Volume = s.Volume.Sub(share)

		lots, unfilled := model.ConsumeFIFO(s.InvestorLots[e.InvestorID], share)
		if unfilled.IsPositive() {
			return apperrors.ErrInsufficientShares
		}
		nav := e.Nav
		if !nav.IsPositive() {
			nav = s.LastNav
		}
		for i := range lots {
			lots[i].WaterLine = nav
		}
		s.InvestorLots[e.InvestorID] = lots

		switch {
		case e.DepositedDate.IsZero() || e.DepositedDate.After(d):
			s.OtherDebt = s.OtherDebt.Add(e.Amount)
		case e.DepositedDate.Before(fin.Day(d)):
			// Cash already went out; confirmation settles the claim.
			s.OtherDebt = s.OtherDebt.Add(e.Amount)
		}
	}
	if fin.SameDay(e.DepositedDate, d) {
		if e.Amount.GreaterThan(s.Cash) {
			return apperrors.ErrInsufficientCash
		}
		s.Cash = s.Cash.Sub(e.Amount)
		if !e.ConfirmedDate.IsZero() && e.ConfirmedDate.Before(fin.Day(d)) {
			s.OtherDebt = s.OtherDebt.Sub(e.Amount)
		} else if e.ConfirmedDate.IsZero() || e.ConfirmedDate.After(d) {
			// Paid out ahead of confirmation: a claim on the investor.
			s.OtherDebt = s.OtherDebt.Sub(e.Amount)
		}
	}
	return nil
}

// applyAssetInCash is the payment leg of a fund purchase: cash leaves on the
// deposited date and rides in CashInTransit until the shares confirm.
func (s *State) applyAssetInCash(d time.Time, e model.Event, _ PriceBook) error {
	if !fin.SameDay(e.DepositedDate, d) {
		return nil
	}
	if e.Amount.GreaterThan(s.Cash) {
		return apperrors.ErrInsufficientCash
	}
	s.Cash = s.Cash.Sub(e.Amount)
	switch {
	case e.ConfirmedDate.IsZero() || e.ConfirmedDate.After(d):
		s.CashInTransit = s.CashInTransit.Add(e.Amount)
	case e.ConfirmedDate.Before(fin.Day(d)):
		// Shares confirmed earlier; this payment settles the payable.
		s.OtherDebt = s.OtherDebt.Sub(e.Amount)
	}
	return nil
}

// applyAssetInShares is the confirmation leg: the holding appears, and when
// the payment is still pending the unpaid amount becomes a payable.
func (s *State) applyAssetInShares(d time.Time, e model.Event, prices PriceBook) error {
	if !fin.SameDay(e.ConfirmedDate, d) {
		return nil
	}
	share := e.ShareOrDerived()
	s.Shares[e.FundID] = s.share(e.FundID).Add(share)
	s.AssetTypes[e.FundID] = e.AssetType
	s.Costs[e.FundID] = s.cost(e.FundID).Add(e.Amount)

	if e.AssetType == model.AssetHedge {
		s.Lots[e.FundID] = append(s.Lots[e.FundID], s.newAssetLot(d, e, share, prices))
	}

	switch {
	case fin.SameDay(e.DepositedDate, d):
		// Same-day settlement, no transit.
	case !e.DepositedDate.IsZero() && e.DepositedDate.Before(fin.Day(d)):
		s.CashInTransit = s.CashInTransit.Sub(e.Amount)
	default:
		s.OtherDebt = s.OtherDebt.Add(e.Amount)
	}
	return nil
}

func (s *State) newAssetLot(d time.Time, e model.Event, share decimal.Decimal, prices PriceBook) model.Lot {
	waterLine := e.WaterLine
	openNav := e.Nav
	if point, ok := prices.At(e.FundID, d); ok {
		if !waterLine.IsPositive() {
			waterLine = point.AccNav
		}
		if !openNav.IsPositive() {
			openNav = point.UnitNav
		}
	}
	if !waterLine.IsPositive() {
		waterLine = openNav
	}
	return model.Lot{
		ID:              e.ID,
		FundID:          e.FundID,
		OpenDate:        fin.Day(d),
		OpenNav:         openNav,
		OpenAmount:      e.Amount,
		OpenShare:       share,
		WaterLine:       waterLine,
		RemainingShare:  share,
		RemainingAmount: e.Amount,
	}
}

// applyAssetRedeemShares removes the holding on the confirmed date; the
// proceeds ride in CashInTransit until deposited.
func (s *State) applyAssetRedeemShares(d time.Time, e model.Event, _ PriceBook) error {
	if !fin.SameDay(e.ConfirmedDate, d) {
		return nil
	}
	share := e.ShareOrDerived()
	held := s.share(e.FundID)
	if share.GreaterThan(held) {
		return apperrors.ErrInsufficientShares
	}
	s.Shares[e.FundID] = held.Sub(share)
	if held.IsPositive() {
		kept := held.Sub(share).Div(held)
		s.Costs[e.FundID] = s.cost(e.FundID).Mul(kept)
	}

	if e.AssetType == model.AssetHedge {
		lots, unfilled := model.ConsumeFIFO(s.Lots[e.FundID], share)
		if unfilled.IsPositive() {
			return apperrors.ErrInsufficientShares
		}
		s.Lots[e.FundID] = lots
	}

	switch {
	case e.DepositedDate.IsZero() || e.DepositedDate.After(d):
		s.CashInTransit = s.CashInTransit.Add(e.Amount)
	case e.DepositedDate.Before(fin.Day(d)):
		// Proceeds already landed; the cancellation settles the payable.
		s.OtherDebt = s.OtherDebt.Sub(e.Amount)
	}
	return nil
}

func (s *State) applyAssetRedeemCash(d time.Time, e model.Event, _ PriceBook) error {
	if !fin.SameDay(e.DepositedDate, d) {
		return nil
	}
	s.Cash = s.Cash.Add(e.Amount)
	switch {
	case !e.ConfirmedDate.IsZero() && e.ConfirmedDate.Before(fin.Day(d)):
		s.CashInTransit = s.CashInTransit.Sub(e.Amount)
	case e.ConfirmedDate.IsZero() || e.ConfirmedDate.After(d):
		// Proceeds arrived before the share cancellation confirmed.
		s.OtherDebt = s.OtherDebt.Add(e.Amount)
	}
	return nil
}

// applyDistribution books dividends and incentive-fee deductions. A reward
// deduction collapses the fund's lots into one parcel with the deduction-date
// NAV as the new water line.
func (s *State) applyDistribution(d time.Time, e model.Event, prices PriceBook) error {
	switch e.Type {
	case model.EventDividendCash:
		if fin.SameDay(s.cashDate(e), d) {
			s.Cash = s.Cash.Add(e.Amount)
		}
	case model.EventDividendReinvest:
		if fin.SameDay(e.ConfirmedDate, d) {
			share := e.ShareOrDerived()
			s.Shares[e.FundID] = s.share(e.FundID).Add(share)
			if e.AssetType == model.AssetHedge {
				s.Lots[e.FundID] = append(s.Lots[e.FundID], s.newAssetLot(d, e, share, prices))
			}
		}
	case model.EventDeductReward, model.EventDeductRewardDividendCash, model.EventDeductRewardDividendReinvest:
		if e.Status != model.StatusDone {
			return nil
		}
		if fin.SameDay(e.ConfirmedDate, d) {
			if err := s.applyDeduct(d, e, prices); err != nil {
				return err
			}
		}
		if e.Type == model.EventDeductRewardDividendCash && fin.SameDay(s.cashDate(e), d) {
			s.Cash = s.Cash.Add(e.Amount)
		}
	default:
		return apperrors.ErrUnknownEventType
	}
	return nil
}

func (s *State) applyDeduct(d time.Time, e model.Event, prices PriceBook) error {
	deducted := e.ShareOrDerived()
	reinvested := decimal.Zero
	if e.Type == model.EventDeductRewardDividendReinvest {
		reinvested = e.ReinvestShare
	}
	held := s.share(e.FundID)
	if deducted.GreaterThan(held) {
		return apperrors.ErrInsufficientShares
	}
	s.Shares[e.FundID] = held.Sub(deducted).Add(reinvested)

	nav := e.Nav
	if point, ok := prices.At(e.FundID, d); ok && !nav.IsPositive() {
		nav = point.AccNav
	}
	s.Lots[e.FundID] = valuation.CollapseLots(s.Lots[e.FundID], deducted, reinvested, nav, fin.Day(d), e.ID)
	return nil
}

// accrueMonetary applies the monetary funds' daily profit as new shares.
func (s *State) accrueMonetary(d time.Time, prices PriceBook) {
	for fundID, share := range s.Shares {
		if s.AssetTypes[fundID] != model.AssetMonetary || !share.IsPositive() {
			continue
		}
		point, ok := prices.At(fundID, d)
		if !ok || point.DailyProfit.IsZero() {
			continue
		}
		grown := fin.RoundAmount(share.Mul(point.DailyProfit).Div(decimal.NewFromInt(10000)))
		s.Shares[fundID] = share.Add(grown)
	}
}

// applyIncidental books interest income, other income/expense, fee-transfer
// settlements, and other payables. Fee transfers reduce the matching accrual
// so the fee is never counted twice.
func (s *State) applyIncidental(d time.Time, e model.Event) error {
	if !fin.SameDay(s.cashDate(e), d) {
		return nil
	}
	if e.Amount.IsNegative() {
		return apperrors.ErrNegativeAmount
	}
	switch e.Kind {
	case model.IncidentalInterest:
		s.Cash = s.Cash.Add(e.Amount)
		s.CumInterest = s.CumInterest.Sub(e.Amount)
	case model.IncidentalOtherIncome:
		s.Cash = s.Cash.Add(e.Amount)
	case model.IncidentalOtherExpense, model.IncidentalOtherPayable:
		s.Cash = s.Cash.Sub(e.Amount)
	case model.IncidentalManagement:
		s.Cash = s.Cash.Sub(e.Amount)
		s.CumManagement = s.CumManagement.Sub(e.Amount)
	case model.IncidentalCustodian:
		s.Cash = s.Cash.Sub(e.Amount)
		s.CumCustodian = s.CumCustodian.Sub(e.Amount)
	case model.IncidentalAdministrative:
		s.Cash = s.Cash.Sub(e.Amount)
		s.CumAdministrative = s.CumAdministrative.Sub(e.Amount)
	default:
		return apperrors.ErrUnknownEventType
	}
	if s.Cash.IsNegative() {
		return apperrors.ErrInsufficientCash
	}
	return nil
}

// cashDate is the day an event's cash effect lands: the deposited date when
// present, otherwise the applied date.
func (s *State) cashDate(e model.Event) time.Time {
	if !e.DepositedDate.IsZero() {
		return e.DepositedDate
	}
	return e.AppliedDate
}

func (s *State) share(fundID string) decimal.Decimal {
	if v, ok := s.Shares[fundID]; ok {
		return v
	}
	return decimal.Zero
}

func (s *State) cost(fundID string) decimal.Decimal {
	if v, ok := s.Costs[fundID]; ok {
		return v
	}
	return decimal.Zero
}

func (s *State) contrib(investorID string) decimal.Decimal {
	if v, ok := s.InvestorContrib[investorID]; ok {
		return v
	}
	return decimal.Zero
}

func (s *State) shareTotal(investorID string) decimal.Decimal {
	if v, ok := s.InvestorShareTotal[investorID]; ok {
		return v
	}
	return decimal.Zero
}
