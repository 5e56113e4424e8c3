package repo

import (
	"context"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/serenity-spa/spachat/internal/model"
	"github.com/serenity-spa/spachat/internal/pkg/dbutil"
)

type ServiceRepo struct {
	db *sqlx.DB
}

func NewServiceRepo(db *sqlx.DB) *ServiceRepo {
	return &ServiceRepo{db: db}
}

// List returns the catalog in display order with aliases attached.
func (r *ServiceRepo) List(ctx context.Context) ([]model.Service, error) {
	where := map[string]interface{}{
		"_orderby": "position asc",
	}
	sqlStr, args, err := builder.BuildSelect("services", where, []string{"id", "name", "duration", "price_from", "description"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	services := make([]model.Service, 0)
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Duration, &s.PriceFrom, &s.Description); err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	aliases, err := r.listAliases(ctx)
	if err != nil {
		return nil, err
	}
	for i := range services {
		services[i].Aliases = aliases[services[i].ID]
	}
	return services, nil
}

func (r *ServiceRepo) listAliases(ctx context.Context) (map[string][]string, error) {
	where := map[string]interface{}{
		"_orderby": "alias asc",
	}
	sqlStr, args, err := builder.BuildSelect("service_aliases", where, []string{"service_id", "alias"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	aliases := make(map[string][]string)
	for rows.Next() {
		var serviceID, alias string
		if err := rows.Scan(&serviceID, &alias); err != nil {
			return nil, err
		}
		aliases[serviceID] = append(aliases[serviceID], alias)
	}
	return aliases, rows.Err()
}
