package payments

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists records through gorm; works against MySQL and Postgres.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

// Migrate creates or updates the transactions and callback_events tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Transaction{}, &CallbackEvent{})
}

func (s *GormStore) Create(ctx context.Context, t *Transaction) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		if isDup(err) {
			return ErrDuplicateTransaction
		}
		return err
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, tranID string) (Transaction, error) {
	var t Transaction
	if err := s.db.WithContext(ctx).First(&t, "transaction_id = ?", tranID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	return t, nil
}

func (s *GormStore) AttachSession(ctx context.Context, tranID, sessionKey string) error {
	return s.db.WithContext(ctx).Model(&Transaction{}).
		Where("transaction_id = ? AND status = ?", tranID, StatusPending).
		Updates(map[string]any{
			"session_key": sessionKey,
			"updated_at":  s.now(),
		}).Error
}

// Transition locks the row, checks it is still PENDING and applies the
// update inside one database transaction, so concurrent callbacks for the
// same id serialize on the row lock.
func (s *GormStore) Transition(ctx context.Context, tranID string, in TransitionInput) (Transaction, bool, error) {
	var t Transaction
	applied := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&t, "transaction_id = ?", tranID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}

		// idempotent
		if t.Status != StatusPending {
			return nil
		}

		now := s.now()
		if err := tx.WithContext(ctx).Model(&Transaction{}).
			Where("transaction_id = ? AND status = ?", tranID, StatusPending).
			Updates(in.columns(now)).Error; err != nil {
			return err
		}
		in.applyTo(&t, now)
		applied = true
		return nil
	})
	if err != nil {
		return Transaction{}, false, err
	}
	return t, applied, nil
}

func (s *GormStore) RecordCallback(ctx context.Context, ev CallbackEvent) error {
	return s.db.WithContext(ctx).Create(&ev).Error
}

func isDup(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return true
	}
	var pe *pgconn.PgError
	return errors.As(err, &pe) && pe.Code == "23505"
}
