package projects

import (
	"context"
	"fmt"
	"time"

	mdshared "github.com/quarry-erp/quarry-erp/internal/masterdata/shared"
	"github.com/quarry-erp/quarry-erp/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters mdshared.ListFilters) ([]Project, int, error) {
	return s.repo.List(ctx, filters.Normalize())
}

func (s *Service) Get(ctx context.Context, id int64) (Project, error) {
	if id <= 0 {
		return Project{}, fmt.Errorf("project id: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, project Project) (Project, error) {
	if project.Status == "" {
		project.Status = StatusActive
	}
	if project.StartDate.IsZero() {
		project.StartDate = time.Now()
	}
	if err := s.validate(project); err != nil {
		return Project{}, err
	}
	return s.repo.Create(ctx, project)
}

func (s *Service) Update(ctx context.Context, id int64, project Project) error {
	if id <= 0 {
		return fmt.Errorf("project id: %w", shared.ErrValidation)
	}
	if err := s.validate(project); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, project)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("project id: %w", shared.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}
