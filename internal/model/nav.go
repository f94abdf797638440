package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// NavRow is one committed day of the FOF NAV series. Rows are immutable once
// committed; reruns that extend the horizon must reproduce earlier rows
// byte-identically.
type NavRow struct {
	FofID  string          `json:"fofId"`
	Date   time.Time       `json:"date"`
	Nav    decimal.Decimal `json:"nav"`
	AccNav decimal.Decimal `json:"accNav"`
	AdjNav decimal.Decimal `json:"adjNav"`

	// Volume is the outstanding FOF shares at close.
	Volume decimal.Decimal `json:"volume"`

	// MV is net assets after corrections.
	MV decimal.Decimal `json:"mv"`

	// Ret is the return since inception.
	Ret decimal.Decimal `json:"ret"`
}

// PositionEntry is one fund inside a day's position snapshot.
type PositionEntry struct {
	FundID    string          `json:"fundId"`
	AssetType AssetType       `json:"assetType"`
	Share     decimal.Decimal `json:"share"`
	Nav       decimal.Decimal `json:"nav"`
}

// PositionRow is the per-day JSON snapshot of all holdings.
type PositionRow struct {
	FofID    string          `json:"fofId"`
	Date     time.Time       `json:"date"`
	Holdings []PositionEntry `json:"holdings"`
}

// PositionDetailRow is the latest-only per-fund detail: every open lot's
// confirmation NAV and water line plus the aggregate cost and return.
type PositionDetailRow struct {
	FofID        string            `json:"fofId"`
	FundID       string            `json:"fundId"`
	AssetType    AssetType         `json:"assetType"`
	ConfirmedNav []decimal.Decimal `json:"confirmedNav"`
	WaterLine    []decimal.Decimal `json:"waterLine"`
	UnitNav      decimal.Decimal   `json:"unitNav"`
	AccNav       decimal.Decimal   `json:"accNav"`
	VNav         decimal.Decimal   `json:"vNav"`
	TotalShare   decimal.Decimal   `json:"totalShare"`
	TotalCost    decimal.Decimal   `json:"totalCost"`
	LatestMV     decimal.Decimal   `json:"latestMv"`
	TotalRet     decimal.Decimal   `json:"totalRet"`
	TotalRR      decimal.Decimal   `json:"totalRr"`
}

// InvestorPosition is the per-investor summary over their surviving lots.
type InvestorPosition struct {
	FofID      string          `json:"fofId"`
	InvestorID string          `json:"investorId"`
	Amount     decimal.Decimal `json:"amount"`
	LeftAmount decimal.Decimal `json:"leftAmount"`
	Share      decimal.Decimal `json:"share"`
	LeftShare  decimal.Decimal `json:"leftShare"`

	// VNav is the investor's virtual NAV against their own water lines.
	VNav     decimal.Decimal `json:"vNav"`
	MV       decimal.Decimal `json:"mv"`
	TotalRet decimal.Decimal `json:"totalRet"`
	TotalRR  decimal.Decimal `json:"totalRr"`
}

// FeeAccrualRow is the per-day fee audit record.
type FeeAccrualRow struct {
	FofID             string          `json:"fofId"`
	Date              time.Time       `json:"date"`
	Management        decimal.Decimal `json:"management"`
	Custodian         decimal.Decimal `json:"custodian"`
	Administrative    decimal.Decimal `json:"administrative"`
	CumManagement     decimal.Decimal `json:"cumManagement"`
	CumCustodian      decimal.Decimal `json:"cumCustodian"`
	CumAdministrative decimal.Decimal `json:"cumAdministrative"`
}

// InterestAccrualRow is the per-day deposit-interest audit record.
type InterestAccrualRow struct {
	FofID       string          `json:"fofId"`
	Date        time.Time       `json:"date"`
	Cash        decimal.Decimal `json:"cash"`
	Daily       decimal.Decimal `json:"daily"`
	CumInterest decimal.Decimal `json:"cumInterest"`
}

// CashInTransitRow is the per-day in-transit audit record.
type CashInTransitRow struct {
	FofID            string          `json:"fofId"`
	Date             time.Time       `json:"date"`
	CashInTransit    decimal.Decimal `json:"cashInTransit"`
	DepositInTransit decimal.Decimal `json:"depositInTransit"`
	OtherDebt        decimal.Decimal `json:"otherDebt"`
}

// AccountStatementRow is the per-day account reconciliation record.
type AccountStatementRow struct {
	FofID          string          `json:"fofId"`
	Date           time.Time       `json:"date"`
	Cash           decimal.Decimal `json:"cash"`
	NetAssets      decimal.Decimal `json:"netAssets"`
	NetAssetsFixed decimal.Decimal `json:"netAssetsFixed"`
	AccruedFees    decimal.Decimal `json:"accruedFees"`
	AccruedInt     decimal.Decimal `json:"accruedInterest"`
}

// Correction is one manual or drift-recorded adjustment to net assets.
// net_assets_fixed(d) is net_assets(d) plus all corrections dated <= d.
type Correction struct {
	FofID  string          `json:"fofId"`
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}
