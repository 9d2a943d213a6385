package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"bikeservice/internal/database"
	"bikeservice/internal/domain"
	"bikeservice/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService serves the bike catalog from an in-memory copy refreshed on every write.
type CatalogService struct {
	repo     domain.BikeRepository
	logger   *zerolog.Logger
	bikes    []*models.Bike
	bikesMap map[string]*models.Bike
	mu       sync.RWMutex
}

func NewCatalogService(repo domain.BikeRepository, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{
		repo:     repo,
		logger:   logger,
		bikesMap: make(map[string]*models.Bike),
	}
}

func (s *CatalogService) ListBikes(ctx context.Context) ([]*models.Bike, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Bike, len(s.bikes))
	copy(out, s.bikes)
	return out, nil
}

// FindBikeByID returns nil when the bike does not exist.
func (s *CatalogService) FindBikeByID(ctx context.Context, id string) (*models.Bike, error) {
	s.mu.RLock()
	bike, ok := s.bikesMap[id]
	s.mu.RUnlock()
	if ok {
		b := *bike
		return &b, nil
	}

	// cache may lag behind another instance's writes
	bike, err := s.repo.GetBikeByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return bike, nil
}

func (s *CatalogService) GetBike(ctx context.Context, id string) (*models.Bike, error) {
	bike, err := s.FindBikeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bike == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "Bike not found")
	}
	return bike, nil
}

func (s *CatalogService) GetBikesByName(ctx context.Context, name string) ([]*models.Bike, error) {
	return s.repo.GetBikesByName(ctx, name)
}

func (s *CatalogService) GetBikeModels(ctx context.Context) ([]string, error) {
	return s.repo.GetBikeModels(ctx)
}

func (s *CatalogService) CountBikes(ctx context.Context) (int, error) {
	return s.repo.CountBikes(ctx)
}

// GroupedByName pages through the catalog grouped by bike name. page is 1-based.
func (s *CatalogService) GroupedByName(ctx context.Context, page, size int) ([]models.BikeGroup, int, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = models.DefaultPaginationSize
	}

	s.mu.RLock()
	var groups []models.BikeGroup
	index := make(map[string]int)
	for _, b := range s.bikes {
		i, ok := index[b.Name]
		if !ok {
			i = len(groups)
			index[b.Name] = i
			groups = append(groups, models.BikeGroup{Name: b.Name})
		}
		groups[i].Bikes = append(groups[i].Bikes, b)
	}
	s.mu.RUnlock()

	total := len(groups)
	start := (page - 1) * size
	if start >= total {
		return []models.BikeGroup{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return groups[start:end], total, nil
}

func (s *CatalogService) CreateBike(ctx context.Context, bike *models.Bike) error {
	if err := validateBike(bike); err != nil {
		return err
	}
	if err := s.repo.CreateBike(ctx, bike); err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			return domain.Errorf(domain.ErrValidation, "Bike already exists")
		}
		return err
	}
	return s.Refresh(ctx)
}

func (s *CatalogService) UpdateBike(ctx context.Context, bike *models.Bike) error {
	if err := validateBike(bike); err != nil {
		return err
	}
	if err := s.repo.UpdateBike(ctx, bike); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return domain.Errorf(domain.ErrNotFound, "Bike not found")
		}
		return err
	}
	return s.Refresh(ctx)
}

func (s *CatalogService) DeleteBike(ctx context.Context, id string) error {
	if err := s.repo.DeleteBike(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return domain.Errorf(domain.ErrNotFound, "Bike not found")
		}
		return err
	}
	return s.Refresh(ctx)
}

func (s *CatalogService) Refresh(ctx context.Context) error {
	bikes, err := s.repo.GetBikes(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bikes = bikes
	s.bikesMap = make(map[string]*models.Bike, len(bikes))
	for _, b := range bikes {
		s.bikesMap[b.ID] = b
	}
	s.logger.Debug().Int("count", len(bikes)).Msg("Bike catalog refreshed")
	return nil
}

func validateBike(bike *models.Bike) error {
	bike.Name = strings.TrimSpace(bike.Name)
	bike.Model = strings.TrimSpace(bike.Model)
	if bike.Name == "" || bike.Model == "" {
		return domain.Errorf(domain.ErrValidation, "Please enter all fields")
	}
	if bike.Price <= 0 {
		return domain.Errorf(domain.ErrValidation, "price must be greater than zero")
	}
	return nil
}
