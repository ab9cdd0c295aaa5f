package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Credential adalah model GORM untuk tabel 'credentials'. Hanya ada satu baris (id=1).
type Credential struct {
	ID        uint   `gorm:"primaryKey"`
	Token     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

const credentialRowID = 1

type sqlStore struct {
	db *gorm.DB
}

// NewSQLStore menyimpan token di database lokal (sqlite) atau postgres.
// Tabel dibuat lewat AutoMigrate.
func NewSQLStore(db *gorm.DB) (Provider, error) {
	if err := db.AutoMigrate(&Credential{}); err != nil {
		return nil, fmt.Errorf("gagal migrasi tabel credentials: %w", err)
	}
	return &sqlStore{db: db}, nil
}

func (s *sqlStore) Get(ctx context.Context) (string, error) {
	var c Credential
	err := s.db.WithContext(ctx).First(&c, credentialRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return c.Token, nil
}

func (s *sqlStore) Set(ctx context.Context, token string) error {
	c := Credential{ID: credentialRowID, Token: token}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "updated_at"}),
	}).Create(&c).Error
}

func (s *sqlStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Delete(&Credential{}, credentialRowID).Error
}
