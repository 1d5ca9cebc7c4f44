package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/hilalcal/hilal/internal/database"
)

type AuthRepository struct {
	db *sql.DB
}

func NewAuthRepository(db *database.SQLite) *AuthRepository {
	return &AuthRepository{db: db.DB}
}

// PurgeExpired deletes passcodes and sessions that expired before now.
func (r *AuthRepository) PurgeExpired(ctx context.Context, now time.Time) (otp, sessions int64, err error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE expires_at < ?`, now.Unix())
	if err != nil {
		return 0, 0, err
	}
	if otp, err = res.RowsAffected(); err != nil {
		return 0, 0, err
	}

	res, err = r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now.Unix())
	if err != nil {
		return otp, 0, err
	}
	sessions, err = res.RowsAffected()
	return otp, sessions, err
}
