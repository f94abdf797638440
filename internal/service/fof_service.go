package service

import (
	"time"

	"github.com/quantclear/fofnav/internal/model"
	"github.com/quantclear/fofnav/internal/repository"
)

// FofService handles the read side: committed NAV series, position
// snapshots, investor summaries, and audit series.
type FofService struct {
	productRepo  *repository.ProductRepository
	navRepo      *repository.NavRepository
	investorRepo *repository.InvestorRepository
	auditRepo    *repository.AuditRepository
}

// NewFofService creates a new FofService with the provided repository dependencies.
func NewFofService(
	productRepo *repository.ProductRepository,
	navRepo *repository.NavRepository,
	investorRepo *repository.InvestorRepository,
	auditRepo *repository.AuditRepository,
) *FofService {
	return &FofService{
		productRepo:  productRepo,
		navRepo:      navRepo,
		investorRepo: investorRepo,
		auditRepo:    auditRepo,
	}
}

// GetProduct retrieves a FOF product by ID.
func (s *FofService) GetProduct(fofID string) (model.Product, error) {
	return s.productRepo.Get(fofID)
}

// GetAllProducts retrieves every registered FOF product.
func (s *FofService) GetAllProducts() ([]model.Product, error) {
	return s.productRepo.List()
}

// GetNavSeries retrieves the committed NAV series of a FOF, oldest first.
func (s *FofService) GetNavSeries(fofID string) ([]model.NavRow, error) {
	if _, err := s.productRepo.Get(fofID); err != nil {
		return nil, err
	}
	return s.navRepo.GetNavSeries(fofID)
}

// GetNav retrieves the committed NAV row for a single day.
func (s *FofService) GetNav(fofID string, date time.Time) (model.NavRow, error) {
	if _, err := s.productRepo.Get(fofID); err != nil {
		return model.NavRow{}, err
	}
	return s.navRepo.GetNav(fofID, date)
}

// GetPositions retrieves the per-day position snapshots of a FOF.
func (s *FofService) GetPositions(fofID string) ([]model.PositionRow, error) {
	if _, err := s.productRepo.Get(fofID); err != nil {
		return nil, err
	}
	return s.navRepo.GetPositions(fofID)
}

// GetPositionDetails retrieves the latest per-fund lot details of a FOF.
func (s *FofService) GetPositionDetails(fofID string) ([]model.PositionDetailRow, error) {
	if _, err := s.productRepo.Get(fofID); err != nil {
		return nil, err
	}
	return s.navRepo.GetDetails(fofID)
}

// GetInvestors retrieves every investor summary of a FOF.
func (s *FofService) GetInvestors(fofID string) ([]model.InvestorPosition, error) {
	if _, err := s.productRepo.Get(fofID); err != nil {
		return nil, err
	}
	return s.investorRepo.List(fofID)
}

// GetInvestor retrieves one investor's summary.
func (s *FofService) GetInvestor(fofID, investorID string) (model.InvestorPosition, error) {
	if _, err := s.productRepo.Get(fofID); err != nil {
		return model.InvestorPosition{}, err
	}
	return s.investorRepo.Get(fofID, investorID)
}

// GetStatements retrieves the account statement series of a FOF.
func (s *FofService) GetStatements(fofID string) ([]model.AccountStatementRow, error) {
	if _, err := s.productRepo.Get(fofID); err != nil {
		return nil, err
	}
	return s.auditRepo.GetStatements(fofID)
}
