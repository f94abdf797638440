package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantclear/fofnav/internal/model"
	"github.com/quantclear/fofnav/internal/repository"
)

// MakeID returns a fresh UUID string.
func MakeID() string {
	return uuid.NewString()
}

// Date parses an ISO date, failing the test on bad input.
func Date(t *testing.T, str string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", str)
	if err != nil {
		t.Fatalf("Failed to parse test date %q: %v", str, err)
	}
	return d.UTC()
}

// Dec parses a decimal literal, failing the test on bad input.
func Dec(t *testing.T, str string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(str)
	if err != nil {
		t.Fatalf("Failed to parse test decimal %q: %v", str, err)
	}
	return d
}

// ProductBuilder provides a fluent interface for creating test FOF products.
//
// Example usage:
//
//	// Simple creation with defaults
//	product := testutil.NewProduct().Build(t, db)
//
//	// Customized product
//	product := testutil.NewProduct().
//	    WithInception(testutil.Date(t, "2020-01-01")).
//	    WithManagementRate("0.01").
//	    Build(t, db)
type ProductBuilder struct {
	product model.Product
}

// NewProduct creates a ProductBuilder with sensible defaults: zero fee
// rates, asset high-water-mark incentive at 20% / 4 decimal places.
func NewProduct() *ProductBuilder {
	return &ProductBuilder{product: model.Product{
		ID:                 MakeID(),
		Name:               "Test FOF",
		InceptionDate:      time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		IncentiveMode:      model.IncentiveAssetHighWaterMark,
		IncentiveRatio:     decimal.RequireFromString("0.2"),
		IncentivePrecision: 4,
	}}
}

// WithID sets a custom ID.
func (b *ProductBuilder) WithID(id string) *ProductBuilder {
	b.product.ID = id
	return b
}

// WithName sets a custom name.
func (b *ProductBuilder) WithName(name string) *ProductBuilder {
	b.product.Name = name
	return b
}

// WithInception sets the inception date.
func (b *ProductBuilder) WithInception(d time.Time) *ProductBuilder {
	b.product.InceptionDate = d
	return b
}

// WithManagementRate sets the annual management fee rate.
func (b *ProductBuilder) WithManagementRate(rate string) *ProductBuilder {
	b.product.ManagementRate = decimal.RequireFromString(rate)
	return b
}

// WithCustodianRate sets the annual custodian fee rate.
func (b *ProductBuilder) WithCustodianRate(rate string) *ProductBuilder {
	b.product.CustodianRate = decimal.RequireFromString(rate)
	return b
}

// WithAdministrativeRate sets the annual administrative fee rate.
func (b *ProductBuilder) WithAdministrativeRate(rate string) *ProductBuilder {
	b.product.AdministrativeRate = decimal.RequireFromString(rate)
	return b
}

// WithDepositRate sets the annual deposit interest rate.
func (b *ProductBuilder) WithDepositRate(rate string) *ProductBuilder {
	b.product.DepositRate = decimal.RequireFromString(rate)
	return b
}

// WithIncentive sets the incentive ratio and precision.
func (b *ProductBuilder) WithIncentive(ratio string, precision int32) *ProductBuilder {
	b.product.IncentiveRatio = decimal.RequireFromString(ratio)
	b.product.IncentivePrecision = precision
	return b
}

// WithRaisingInterest sets the raising-period interest amount and cutoff.
func (b *ProductBuilder) WithRaisingInterest(amount string, until time.Time) *ProductBuilder {
	b.product.RaisingInterestAmount = decimal.RequireFromString(amount)
	b.product.RaisingInterestUntil = until
	return b
}

// TrustingComputedVNav lets the engine backfill missing hedge navs with its
// own virtual NAV.
func (b *ProductBuilder) TrustingComputedVNav() *ProductBuilder {
	b.product.TrustComputedVNav = true
	return b
}

// Calculating marks the product's run lock as held.
func (b *ProductBuilder) Calculating() *ProductBuilder {
	b.product.IsCalculating = true
	return b
}

// Value returns the built product without persisting it. Engine tests work
// on pure snapshots and never need a database.
func (b *ProductBuilder) Value() model.Product {
	return b.product
}

// Build creates the product in the database and returns it.
func (b *ProductBuilder) Build(t *testing.T, db *sql.DB) model.Product {
	t.Helper()

	if err := repository.NewProductRepository(db).Create(b.product); err != nil {
		t.Fatalf("Failed to create test product: %v", err)
	}
	return b.product
}

// EventBuilder provides a fluent interface for creating test ledger events.
//
// Example usage:
//
//	testutil.NewEvent(fof.ID, model.EventInvestorSubscribe).
//	    WithInvestor("inv-1").
//	    WithAmount("1000000").
//	    OnDates("2020-01-01", "2020-01-01", "2020-01-01").
//	    Build(t, db)
type EventBuilder struct {
	event model.Event
}

// NewEvent creates an EventBuilder for the given FOF and event type.
func NewEvent(fofID string, eventType model.EventType) *EventBuilder {
	return &EventBuilder{event: model.Event{
		ID:        MakeID(),
		FofID:     fofID,
		Type:      eventType,
		Status:    model.StatusDone,
		AssetType: model.AssetNone,
	}}
}

// WithID sets a custom event ID.
func (b *EventBuilder) WithID(id string) *EventBuilder {
	b.event.ID = id
	return b
}

// WithFund sets the counterparty fund and its asset type.
func (b *EventBuilder) WithFund(fundID string, assetType model.AssetType) *EventBuilder {
	b.event.FundID = fundID
	b.event.AssetType = assetType
	return b
}

// WithInvestor sets the investor.
func (b *EventBuilder) WithInvestor(investorID string) *EventBuilder {
	b.event.InvestorID = investorID
	return b
}

// WithKind sets the incidental kind.
func (b *EventBuilder) WithKind(kind model.IncidentalKind) *EventBuilder {
	b.event.Kind = kind
	return b
}

// WithStatus sets the event status.
func (b *EventBuilder) WithStatus(status model.EventStatus) *EventBuilder {
	b.event.Status = status
	return b
}

// WithAmount sets the cash amount.
func (b *EventBuilder) WithAmount(amount string) *EventBuilder {
	b.event.Amount = decimal.RequireFromString(amount)
	return b
}

// WithShare sets the share quantity.
func (b *EventBuilder) WithShare(share string) *EventBuilder {
	b.event.Share = decimal.RequireFromString(share)
	return b
}

// WithNav sets the confirmation NAV.
func (b *EventBuilder) WithNav(nav string) *EventBuilder {
	b.event.Nav = decimal.RequireFromString(nav)
	return b
}

// WithWaterLine sets the explicit water line.
func (b *EventBuilder) WithWaterLine(waterLine string) *EventBuilder {
	b.event.WaterLine = decimal.RequireFromString(waterLine)
	return b
}

// WithReinvestShare sets the reinvested share for deduct-reward events.
func (b *EventBuilder) WithReinvestShare(share string) *EventBuilder {
	b.event.ReinvestShare = decimal.RequireFromString(share)
	return b
}

// On sets the applied date; confirmation and deposit default to the same day.
func (b *EventBuilder) On(applied time.Time) *EventBuilder {
	b.event.AppliedDate = applied
	b.event.ConfirmedDate = applied
	b.event.DepositedDate = applied
	return b
}

// ConfirmedOn sets a later confirmation date.
func (b *EventBuilder) ConfirmedOn(confirmed time.Time) *EventBuilder {
	b.event.ConfirmedDate = confirmed
	return b
}

// DepositedOn sets a later deposit date.
func (b *EventBuilder) DepositedOn(deposited time.Time) *EventBuilder {
	b.event.DepositedDate = deposited
	return b
}

// Value returns the built event without persisting it.
func (b *EventBuilder) Value() model.Event {
	return b.event
}

// Build creates the event in the database and returns it.
func (b *EventBuilder) Build(t *testing.T, db *sql.DB) model.Event {
	t.Helper()

	if err := repository.NewEventRepository(db).Create(b.event); err != nil {
		t.Fatalf("Failed to create test event: %v", err)
	}
	return b.event
}

// CreateFundNav inserts one fund NAV observation.
func CreateFundNav(t *testing.T, db *sql.DB, fundID string, assetType model.AssetType, point model.PricePoint) {
	t.Helper()

	if err := repository.NewFundNavRepository(db).Upsert(fundID, assetType, point); err != nil {
		t.Fatalf("Failed to create test fund nav: %v", err)
	}
}

// Point builds one price observation.
func Point(t *testing.T, date, unitNav, accNav string) model.PricePoint {
	t.Helper()
	return model.PricePoint{
		Date:    Date(t, date),
		UnitNav: Dec(t, unitNav),
		AccNav:  Dec(t, accNav),
	}
}
