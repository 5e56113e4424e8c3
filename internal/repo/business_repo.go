package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"github.com/serenity-spa/spachat/internal/model"
	appErr "github.com/serenity-spa/spachat/internal/pkg/errors"
)

type BusinessRepo struct {
	db *sqlx.DB
}

func NewBusinessRepo(db *sqlx.DB) *BusinessRepo {
	return &BusinessRepo{db: db}
}

// Get reads the singleton business_config row (id=1).
func (r *BusinessRepo) Get(ctx context.Context) (*model.BusinessConfig, error) {
	const query = `
		SELECT name, phone, email, address, hours, policies
		FROM business_config
		WHERE id = 1
	`
	row := r.db.QueryRowContext(ctx, query)
	var cfg model.BusinessConfig
	var hours, policies []byte
	if err := row.Scan(&cfg.Name, &cfg.Phone, &cfg.Email, &cfg.Address, &hours, &policies); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(hours, &cfg.Hours); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(policies, &cfg.Policies); err != nil {
		return nil, err
	}
	return &cfg, nil
}
