package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ReferralRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewReferralRepository(db *pgxpool.Pool, logger *zap.Logger) *ReferralRepository {
	return &ReferralRepository{db: db, logger: logger}
}

// InsertInTx records a referral inside an existing transaction.
func (r *ReferralRepository) InsertInTx(ctx context.Context, tx pgx.Tx, referrerID, referredUserID int, rewardGiven bool) error {
	query := `
        INSERT INTO referrals (referrer_id, referred_user_id, reward_given)
        VALUES ($1, $2, $3)
    `
	if _, err := tx.Exec(ctx, query, referrerID, referredUserID, rewardGiven); err != nil {
		r.logger.Error("Failed to insert referral",
			zap.Int("referrer_id", referrerID),
			zap.Int("referred_user_id", referredUserID),
			zap.Error(err),
		)
		return err
	}
	r.logger.Info("Referral recorded",
		zap.Int("referrer_id", referrerID),
		zap.Int("referred_user_id", referredUserID),
	)
	return nil
}
