package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-master-dispatch/internal/domain"
)

const masterColumns = `id, name, lat, lon, skills, available, verified`

// MasterRepo represents master directory repository.
type MasterRepo struct{ db *pgxpool.Pool }

// NewMasterRepo creates a new MasterRepo.
func NewMasterRepo(db *pgxpool.Pool) *MasterRepo { return &MasterRepo{db: db} }

// GetMaster - returns master by its ID.
func (r *MasterRepo) GetMaster(ctx context.Context, id int64) (*domain.Master, error) {
	m, err := scanMaster(r.db.QueryRow(ctx, `SELECT `+masterColumns+` FROM masters WHERE id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get master %d: %w", id, err)
	}
	return m, nil
}

// FindEligible returns available verified masters carrying the skill, ordered by id.
func (r *MasterRepo) FindEligible(ctx context.Context, skill string) ([]domain.Master, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+masterColumns+`
        FROM masters
        WHERE available AND verified AND skills @> ARRAY[$1]::text[]
        ORDER BY id
    `, skill)
	if err != nil {
		return nil, fmt.Errorf("find masters with skill %q: %w", skill, err)
	}
	defer rows.Close()

	var out []domain.Master
	for rows.Next() {
		m, err := scanMaster(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// SetAvailability toggles the shift flag and returns true if a row was affected.
func (r *MasterRepo) SetAvailability(ctx context.Context, id int64, available bool) (bool, error) {
	ct, err := r.db.Exec(ctx, `
        UPDATE masters
        SET available = $2, updated_at = now()
        WHERE id = $1
    `, id, available)
	if err != nil {
		return false, fmt.Errorf("update master %d availability: %w", id, err)
	}
	return ct.RowsAffected() > 0, nil
}

// Upsert inserts or replaces a master.
func (r *MasterRepo) Upsert(ctx context.Context, m domain.Master) error {
	lat, lon := pointArgs(m.Location)
	skills := m.Skills
	if skills == nil {
		skills = []string{}
	}
	_, err := r.db.Exec(ctx, `
        INSERT INTO masters (id, name, lat, lon, skills, available, verified)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            lat = EXCLUDED.lat,
            lon = EXCLUDED.lon,
            skills = EXCLUDED.skills,
            available = EXCLUDED.available,
            verified = EXCLUDED.verified,
            updated_at = now()
    `, m.ID, m.Name, lat, lon, skills, m.Available, m.Verified)
	if err != nil {
		return fmt.Errorf("upsert master %d: %w", m.ID, err)
	}
	return nil
}

func scanMaster(row pgx.Row) (*domain.Master, error) {
	var (
		m        domain.Master
		lat, lon *float64
	)
	if err := row.Scan(&m.ID, &m.Name, &lat, &lon, &m.Skills, &m.Available, &m.Verified); err != nil {
		return nil, err
	}
	m.Location = pointFrom(lat, lon)
	return &m, nil
}
