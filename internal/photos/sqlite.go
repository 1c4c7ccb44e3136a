package photos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// photoRow maps the photos table for gorm.
type photoRow struct {
	ID           int64  `gorm:"column:id;primaryKey;autoIncrement"`
	PhotoURL     string `gorm:"column:photo_url;type:text;not null"`
	UploaderName string `gorm:"column:uploader_name;type:varchar(255)"`
	Timestamp    int64  `gorm:"column:timestamp;index:photos_timestamp_idx"`
}

func (photoRow) TableName() string {
	return "photos"
}

func (r photoRow) record() PhotoRecord {
	return PhotoRecord{
		ID:           r.ID,
		PhotoURL:     r.PhotoURL,
		UploaderName: r.UploaderName,
		Timestamp:    r.Timestamp,
	}
}

// SQLiteStore keeps photos in a SQLite file, opening it on every call.
// Used for local development and tests.
type SQLiteStore struct {
	path string
}

// NewSQLiteStore does not open the file; that happens per call.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("PHOTOWALL_SQLITE_PATH is empty")
	}
	return &SQLiteStore{path: path}, nil
}

func (s *SQLiteStore) withDB(ctx context.Context, ensure bool, fn func(db *gorm.DB) error) (err error) {
	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close: %w", cerr)
		}
	}()

	db = db.WithContext(ctx)
	if ensure {
		if err := db.AutoMigrate(&photoRow{}); err != nil {
			return fmt.Errorf("ensure photos table: %w", err)
		}
	}
	return fn(db)
}

// Insert writes one record and returns it with the assigned id.
func (s *SQLiteStore) Insert(ctx context.Context, p NewPhoto) (PhotoRecord, error) {
	if err := p.validate(); err != nil {
		return PhotoRecord{}, err
	}

	row := photoRow{
		PhotoURL:     p.PhotoURL,
		UploaderName: p.UploaderName,
		Timestamp:    p.Timestamp,
	}
	err := s.withDB(ctx, true, func(db *gorm.DB) error {
		return db.Create(&row).Error
	})
	if err != nil {
		return PhotoRecord{}, fmt.Errorf("insert photo: %w", err)
	}
	return row.record(), nil
}

// List returns all records ordered by timestamp descending.
func (s *SQLiteStore) List(ctx context.Context) ([]PhotoRecord, error) {
	var rows []photoRow
	err := s.withDB(ctx, true, func(db *gorm.DB) error {
		return db.Order("timestamp DESC").Order("id DESC").Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}

	out := make([]PhotoRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// Ping opens the database file and checks the connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.withDB(ctx, false, func(db *gorm.DB) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
}
