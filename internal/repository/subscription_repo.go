package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskmanagerx/internal/model"
)

type SubscriptionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewSubscriptionRepository(db *pgxpool.Pool, logger *zap.Logger) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, logger: logger}
}

const subscriptionColumns = "id, endpoint, expiration_time, keys_p256dh, keys_auth, created_at"

// ExistsByEndpoint reports whether a subscription with this endpoint is
// already stored. Endpoints are unique per browser installation.
func (r *SubscriptionRepository) ExistsByEndpoint(ctx context.Context, endpoint string) (bool, error) {
	query := "SELECT id FROM subscriptions WHERE endpoint = $1"
	var id int
	err := r.db.QueryRow(ctx, query, endpoint).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		r.logger.Error("Failed to check subscription endpoint", zap.Error(err))
		return false, err
	}
	return true, nil
}

func (r *SubscriptionRepository) Insert(ctx context.Context, sub *model.PushSubscription) error {
	query := `
        INSERT INTO subscriptions (endpoint, expiration_time, keys_p256dh, keys_auth)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		sub.Endpoint,
		sub.ExpirationTime,
		sub.KeysP256DH,
		sub.KeysAuth,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert subscription", zap.Error(err))
		return err
	}
	r.logger.Info("Subscription saved", zap.Int("subscription_id", sub.ID))
	return nil
}

func (r *SubscriptionRepository) ListAll(ctx context.Context) ([]model.PushSubscription, error) {
	query := "SELECT " + subscriptionColumns + " FROM subscriptions ORDER BY id"
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list subscriptions", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	subs := []model.PushSubscription{}
	for rows.Next() {
		var s model.PushSubscription
		if err := rows.Scan(
			&s.ID,
			&s.Endpoint,
			&s.ExpirationTime,
			&s.KeysP256DH,
			&s.KeysAuth,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
