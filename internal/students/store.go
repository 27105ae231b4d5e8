package students

import (
	"context"

	"gorm.io/gorm"
)

// Store runs the demo's statements against the students table.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the students table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Student{})
}

// InsertMany inserts all rows in one statement and fills in their IDs.
func (s *Store) InsertMany(ctx context.Context, rows []Student) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

// All returns every row in insertion order.
func (s *Store) All(ctx context.Context) ([]Student, error) {
	var rows []Student
	err := s.db.WithContext(ctx).Order("id").Find(&rows).Error
	return rows, err
}

// AllByAge returns every row, youngest first.
func (s *Store) AllByAge(ctx context.Context) ([]Student, error) {
	var rows []Student
	err := s.db.WithContext(ctx).Order("age ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

// UpdateAgeByName sets age on every row called name and reports how many
// rows changed.
func (s *Store) UpdateAgeByName(ctx context.Context, name string, age int) (int64, error) {
	res := s.db.WithContext(ctx).Model(&Student{}).Where("name = ?", name).Update("age", age)
	return res.RowsAffected, res.Error
}

// DeleteByName removes every row called name and reports how many went.
func (s *Store) DeleteByName(ctx context.Context, name string) (int64, error) {
	res := s.db.WithContext(ctx).Where("name = ?", name).Delete(&Student{})
	return res.RowsAffected, res.Error
}
