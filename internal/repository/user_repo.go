package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskmanagerx/internal/model"
)

type UserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

const userColumns = "id, phone, name, referrer_id, reward_points, created_at"

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Phone,
		&u.Name,
		&u.ReferrerID,
		&u.RewardPoints,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByPhone returns the user for a phone number, or pgx.ErrNoRows. A miss
// is a valid business branch (new user), not a failure.
func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE phone = $1"
	return scanUser(r.db.QueryRow(ctx, query, phone))
}

func (r *UserRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1"
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// CreateInTx inserts a user inside an existing transaction and returns the
// stored row.
func (r *UserRepository) CreateInTx(ctx context.Context, tx pgx.Tx, phone, name string, referrerID *int) (*model.User, error) {
	query := `
        INSERT INTO users (phone, name, referrer_id)
        VALUES ($1, $2, $3)
        RETURNING ` + userColumns

	u, err := scanUser(tx.QueryRow(ctx, query, phone, name, referrerID))
	if err != nil {
		r.logger.Error("Failed to insert user",
			zap.String("phone", phone),
			zap.Error(err),
		)
		return nil, err
	}
	r.logger.Info("User inserted successfully",
		zap.Int("user_id", u.ID),
		zap.String("phone", phone),
	)
	return u, nil
}

// AwardPointsInTx adds reward points to a user inside an existing transaction.
func (r *UserRepository) AwardPointsInTx(ctx context.Context, tx pgx.Tx, userID, points int) error {
	query := `
        UPDATE users
        SET reward_points = reward_points + $2
        WHERE id = $1
    `
	result, err := tx.Exec(ctx, query, userID, points)
	if err != nil {
		r.logger.Error("Failed to award reward points",
			zap.Int("user_id", userID),
			zap.Int("points", points),
			zap.Error(err),
		)
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	r.logger.Info("Reward points awarded",
		zap.Int("user_id", userID),
		zap.Int("points", points),
	)
	return nil
}
