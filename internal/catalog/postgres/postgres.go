// Package postgres serves catalog rows from PostgreSQL tables keyed by idx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spigell/career-planner/internal/catalog"
)

const (
	vacanciesQuery = `SELECT idx, COALESCE(title, ''), COALESCE(company, ''), COALESCE(location, ''),
		COALESCE(salary, ''), COALESCE(experience, ''), COALESCE(job_type, ''),
		COALESCE(description, ''), COALESCE(key_skills, '')
		FROM vacancies WHERE idx = ANY($1)`

	coursesQuery = `SELECT idx, COALESCE(name, ''), COALESCE(university, ''), COALESCE(level, ''),
		COALESCE(rating, ''), COALESCE(url, ''), COALESCE(description, ''), COALESCE(skills, '')
		FROM courses WHERE idx = ANY($1)`
)

// Connect opens a pgx pool and checks connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type VacancyRepository struct {
	db querier
}

func NewVacancies(db querier) *VacancyRepository {
	return &VacancyRepository{db: db}
}

func (r *VacancyRepository) FindByIndices(ctx context.Context, ids []int) ([]catalog.Vacancy, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, vacanciesQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("query vacancies: %w", err)
	}
	defer rows.Close()

	var out []catalog.Vacancy
	for rows.Next() {
		var v catalog.Vacancy
		if err := rows.Scan(&v.Idx, &v.Title, &v.Company, &v.Location, &v.Salary,
			&v.Experience, &v.JobType, &v.Description, &v.KeySkills); err != nil {
			return nil, fmt.Errorf("scan vacancy: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type CourseRepository struct {
	db querier
}

func NewCourses(db querier) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) FindByIndices(ctx context.Context, ids []int) ([]catalog.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, coursesQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var out []catalog.Course
	for rows.Next() {
		var c catalog.Course
		if err := rows.Scan(&c.Idx, &c.Name, &c.University, &c.Level, &c.Rating,
			&c.URL, &c.Description, &c.Skills); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
