package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventStatus is the settlement state of an event.
type EventStatus string

const (
	StatusInTransit EventStatus = "in_transit"
	StatusDone      EventStatus = "done"
	StatusCancelled EventStatus = "cancelled"
)

// AssetType classifies the underlying referenced by an event or holding.
type AssetType string

const (
	AssetHedge    AssetType = "hedge"
	AssetMutual   AssetType = "mutual"
	AssetMonetary AssetType = "monetary"
	AssetNone     AssetType = "none"
)

// EventType discriminates the cash- and share-moving records of the ledger.
type EventType string

const (
	EventInvestorSubscribe EventType = "investor_subscribe"
	EventInvestorPurchase  EventType = "investor_purchase"
	EventInvestorRedeem    EventType = "investor_redeem"

	EventAssetSubscribe EventType = "asset_subscribe"
	EventAssetPurchase  EventType = "asset_purchase"
	EventAssetRedeem    EventType = "asset_redeem"

	EventDividendCash     EventType = "dividend_cash"
	EventDividendReinvest EventType = "dividend_reinvest"

	EventDeductReward                 EventType = "deduct_reward"
	EventDeductRewardDividendCash     EventType = "deduct_reward_dividend_cash"
	EventDeductRewardDividendReinvest EventType = "deduct_reward_dividend_reinvest"

	EventIncidentalIn  EventType = "incidental_in"
	EventIncidentalOut EventType = "incidental_out"
)

// IncidentalKind refines incidental in/out events.
type IncidentalKind string

const (
	IncidentalInterest       IncidentalKind = "in_interest"
	IncidentalOtherIncome    IncidentalKind = "in_other"
	IncidentalOtherExpense   IncidentalKind = "out_other"
	IncidentalManagement     IncidentalKind = "out_management"
	IncidentalCustodian      IncidentalKind = "out_custodian"
	IncidentalAdministrative IncidentalKind = "out_administrative"
	IncidentalOtherPayable   IncidentalKind = "out_payable"
)

// Event is one dated record of the FOF ledger. The share effect of an event
// lands on ConfirmedDate, the cash effect on DepositedDate; the two are
// independent and the gap between them is booked as a transient receivable or
// payable by the holdings ledger.
type Event struct {
	ID    string
	FofID string

	Type   EventType
	Kind   IncidentalKind
	Status EventStatus

	FundID     string
	AssetType  AssetType
	InvestorID string

	AppliedDate   time.Time
	ConfirmedDate time.Time
	DepositedDate time.Time

	Amount decimal.Decimal
	Share  decimal.Decimal
	Nav    decimal.Decimal

	// WaterLine overrides the high-water mark of the lot opened by this
	// event; when zero the confirmation-date accumulated NAV is used.
	WaterLine decimal.Decimal

	// ReinvestShare carries the reinvested parcel of the combined
	// deduct-reward-and-dividend-reinvest settlement.
	ReinvestShare decimal.Decimal
}

// ShareOrDerived returns the explicit share count, falling back to
// amount / nav when the trustee record omits it.
func (e Event) ShareOrDerived() decimal.Decimal {
	if !e.Share.IsZero() {
		return e.Share
	}
	if e.Nav.IsPositive() {
		return e.Amount.Div(e.Nav)
	}
	return decimal.Zero
}

// IsInvestorIn reports whether the event creates investor shares.
func (e Event) IsInvestorIn() bool {
	return e.Type == EventInvestorSubscribe || e.Type == EventInvestorPurchase
}

// IsAssetIn reports whether the event creates a fund holding.
func (e Event) IsAssetIn() bool {
	return e.Type == EventAssetSubscribe || e.Type == EventAssetPurchase
}

// IsDeduct reports whether the event settles incentive fees in units.
func (e Event) IsDeduct() bool {
	switch e.Type {
	case EventDeductReward, EventDeductRewardDividendCash, EventDeductRewardDividendReinvest:
		return true
	}
	return false
}
