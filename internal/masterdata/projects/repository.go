package projects

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	mdshared "github.com/quarry-erp/quarry-erp/internal/masterdata/shared"
	"github.com/quarry-erp/quarry-erp/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters mdshared.ListFilters) ([]Project, int, error)
	Get(ctx context.Context, id int64) (Project, error)
	Create(ctx context.Context, project Project) (Project, error)
	Update(ctx context.Context, id int64, project Project) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const projectColumns = `id, code, name, site, contract_number, start_date, status, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters mdshared.ListFilters) ([]Project, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Status != "" {
		where += ` AND status = $` + strconv.Itoa(argNum)
		args = append(args, filters.Status)
		argNum++
	}
	if filters.Search != "" {
		where += ` AND (name ILIKE $` + strconv.Itoa(argNum) + ` OR code ILIKE $` + strconv.Itoa(argNum) + `)`
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM projects`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + projectColumns + ` FROM projects` + where +
		` ORDER BY code LIMIT $` + strconv.Itoa(argNum) + ` OFFSET $` + strconv.Itoa(argNum+1)
	args = append(args, filters.Limit, filters.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Site, &p.ContractNumber, &p.StartDate, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	return projects, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Project, error) {
	var p Project
	err := r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id).
		Scan(&p.ID, &p.Code, &p.Name, &p.Site, &p.ContractNumber, &p.StartDate, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, fmt.Errorf("project %d: %w", id, shared.ErrNotFound)
		}
		return Project{}, err
	}
	return p, nil
}

func (r *repository) Create(ctx context.Context, project Project) (Project, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO projects (code, name, site, contract_number, start_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING `+projectColumns,
		project.Code, project.Name, project.Site, project.ContractNumber, project.StartDate, string(project.Status)).
		Scan(&project.ID, &project.Code, &project.Name, &project.Site, &project.ContractNumber, &project.StartDate, &project.Status, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Project{}, fmt.Errorf("project code %s taken: %w", project.Code, shared.ErrConflict)
		}
		return Project{}, err
	}
	return project, nil
}

func (r *repository) Update(ctx context.Context, id int64, project Project) error {
	tag, err := r.pool.Exec(ctx, `UPDATE projects SET code = $1, name = $2, site = $3, contract_number = $4, start_date = $5, status = $6, updated_at = NOW()
		WHERE id = $7`,
		project.Code, project.Name, project.Site, project.ContractNumber, project.StartDate, string(project.Status), id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("project code %s taken: %w", project.Code, shared.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		// Requisitions reference projects; refuse to orphan them.
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("project %d is referenced by requisitions: %w", id, shared.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
