package profile

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Attribute is one identity directory attribute of a user.
type Attribute struct {
	UserID    string    `gorm:"primaryKey;type:varchar(128)" json:"user_id"`
	Name      string    `gorm:"primaryKey;type:varchar(64)" json:"name"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Attribute) TableName() string { return "user_attributes" }

// Directory is the identity directory holding user attributes.
type Directory interface {
	UpdateAttributes(ctx context.Context, userID string, attrs map[string]string) error
}

type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) UpdateAttributes(ctx context.Context, userID string, attrs map[string]string) error {
	if len(attrs) == 0 {
		return nil
	}
	rows := make([]Attribute, 0, len(attrs))
	for name, value := range attrs {
		rows = append(rows, Attribute{UserID: userID, Name: name, Value: value})
	}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
}

func (d *GormDirectory) Attributes(ctx context.Context, userID string) (map[string]string, error) {
	var rows []Attribute
	if err := d.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Value
	}
	return out, nil
}
