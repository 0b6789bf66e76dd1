package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Credential is one row of the local key-value table.
type Credential struct {
	Name      string `gorm:"primarykey;type:varchar(100)"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

// SQLStore keeps the token in a relational table through gorm, for hosts that already ship a database.
type SQLStore struct {
	db  *gorm.DB
	key string
}

func NewSQLStore(db *gorm.DB, key string) (*SQLStore, error) {
	if err := db.AutoMigrate(&Credential{}); err != nil {
		return nil, fmt.Errorf("failed to migrate credentials table: %w", err)
	}
	return &SQLStore{db: db, key: key}, nil
}

func (s *SQLStore) Get(ctx context.Context) (string, error) {
	var credential Credential
	err := s.db.WithContext(ctx).Where("name = ?", s.key).First(&credential).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return credential.Value, nil
}

func (s *SQLStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&Credential{Name: s.key, Value: token}).Error
}

func (s *SQLStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("name = ?", s.key).Delete(&Credential{}).Error
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
