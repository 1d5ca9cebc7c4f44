package repository

import (
	"context"
	"time"

	"github.com/hilalcal/hilal/internal/database"
)

// AuthRepository gives the scheduler access to the auth subsystem's
// one-time-passcode and session tables for housekeeping.
type AuthRepository struct {
	db *database.DB
}

func NewAuthRepository(db *database.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

// PurgeExpired deletes passcodes and sessions that expired before now.
func (r *AuthRepository) PurgeExpired(ctx context.Context, now time.Time) (otp, sessions int64, err error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM otp_codes WHERE expires_at < $1`, now)
	if err != nil {
		return 0, 0, err
	}
	otp = tag.RowsAffected()

	tag, err = r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return otp, 0, err
	}
	return otp, tag.RowsAffected(), nil
}
