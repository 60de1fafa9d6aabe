package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firasfellah-apex/Benjamin-App-V2-sub001/internal/core/domain"
)

// AtmRepository reads the externally-maintained ATM directory. This
// service never writes to it.
type AtmRepository struct {
	db *pgxpool.Pool
}

func NewAtmRepository(db *pgxpool.Pool) *AtmRepository {
	return &AtmRepository{db: db}
}

const atmColumns = `id, COALESCE(name, ''), COALESCE(address, ''), COALESCE(city, ''),
	lat, lng, COALESCE(is_in_branch, FALSE), COALESCE(is_in_store, FALSE),
	COALESCE(open_24h, FALSE), COALESCE(status, '')`

func (r *AtmRepository) ListActiveAtms(ctx context.Context) ([]domain.AtmLocation, error) {
	query := fmt.Sprintf(`SELECT %s FROM atm_locations WHERE status IS NULL OR status = 'active'`, atmColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list atms: %w", err)
	}
	defer rows.Close()

	var atms []domain.AtmLocation
	for rows.Next() {
		a, err := scanAtm(rows)
		if err != nil {
			return nil, err
		}
		atms = append(atms, a)
	}
	return atms, rows.Err()
}

func (r *AtmRepository) GetAtm(ctx context.Context, id string) (*domain.AtmLocation, error) {
	query := fmt.Sprintf(`SELECT %s FROM atm_locations WHERE id = $1`, atmColumns)

	a, err := scanAtm(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get atm: %w", err)
	}
	return &a, nil
}

func scanAtm(row pgx.Row) (domain.AtmLocation, error) {
	var a domain.AtmLocation
	var status string
	err := row.Scan(&a.ID, &a.Name, &a.Address, &a.City,
		&a.Lat, &a.Lng, &a.IsInBranch, &a.IsInStore, &a.Open24h, &status)
	a.Status = domain.AtmStatus(status)
	return a, err
}
