package projects

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	mdshared "github.com/quarry-erp/quarry-erp/internal/masterdata/shared"
	"github.com/quarry-erp/quarry-erp/internal/shared"
)

type fakeRepo struct {
	projects map[int64]Project
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{projects: map[int64]Project{}}
}

func (r *fakeRepo) List(ctx context.Context, filters mdshared.ListFilters) ([]Project, int, error) {
	var out []Project
	for _, p := range r.projects {
		if filters.Status != "" && string(p.Status) != filters.Status {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *fakeRepo) Get(ctx context.Context, id int64) (Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return Project{}, fmt.Errorf("project %d: %w", id, shared.ErrNotFound)
	}
	return p, nil
}

func (r *fakeRepo) Create(ctx context.Context, project Project) (Project, error) {
	r.nextID++
	project.ID = r.nextID
	r.projects[project.ID] = project
	return project, nil
}

func (r *fakeRepo) Update(ctx context.Context, id int64, project Project) error {
	if _, ok := r.projects[id]; !ok {
		return fmt.Errorf("project %d: %w", id, shared.ErrNotFound)
	}
	project.ID = id
	r.projects[id] = project
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.projects[id]; !ok {
		return fmt.Errorf("project %d: %w", id, shared.ErrNotFound)
	}
	delete(r.projects, id)
	return nil
}

func TestCreateDefaultsToActive(t *testing.T) {
	svc := NewService(newFakeRepo())
	created, err := svc.Create(context.Background(), Project{Code: "PRJ-1", Name: "North Tower", ContractNumber: "CT-2025-014"})
	require.NoError(t, err)
	require.Equal(t, StatusActive, created.Status)
	require.False(t, created.StartDate.IsZero())
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	svc := NewService(newFakeRepo())
	_, err := svc.Create(context.Background(), Project{Code: "PRJ-1", Name: "North Tower", Status: "archived"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateValidates(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), Project{Code: "PRJ-1", Name: "North Tower"})
	require.NoError(t, err)

	err = svc.Update(context.Background(), created.ID, Project{Code: "", Name: "North Tower", StartDate: created.StartDate, Status: StatusOnHold})
	require.ErrorIs(t, err, shared.ErrValidation)

	err = svc.Update(context.Background(), created.ID, Project{Code: "PRJ-1", Name: "North Tower", StartDate: created.StartDate, Status: StatusOnHold})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOnHold, got.Status)
}
