// ABOUTME: User, Coach and UserCoach models for the structured store.
// ABOUTME: User is the only entity referenced from both stores, keyed by UserID.
package models

import "time"

// User is a registered person tracked by the dashboard.
type User struct {
	UserID    string    `gorm:"column:user_id;primaryKey" json:"user_id" yaml:"user_id"`
	Name      string    `gorm:"column:name" json:"name" yaml:"name"`
	Email     string    `gorm:"column:email" json:"email" yaml:"email"`
	Age       int       `gorm:"column:age" json:"age" yaml:"age"`
	Gender    string    `gorm:"column:gender" json:"gender" yaml:"gender"`
	HeightCm  float64   `gorm:"column:height_cm" json:"height_cm" yaml:"height_cm"`
	WeightKg  *float64  `gorm:"column:weight_kg" json:"weight_kg,omitempty" yaml:"weight_kg,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at" yaml:"created_at"`
}

func (User) TableName() string { return "users" }

// Coach is a trainer who can be assigned to many users.
type Coach struct {
	CoachID   string `gorm:"column:coach_id;primaryKey" json:"coach_id" yaml:"coach_id"`
	Name      string `gorm:"column:name" json:"name" yaml:"name"`
	Specialty string `gorm:"column:specialty" json:"specialty" yaml:"specialty"`
	Email     string `gorm:"column:email" json:"email" yaml:"email"`
}

func (Coach) TableName() string { return "coaches" }

// UserCoach links a user to a coach.
type UserCoach struct {
	UserID  string `gorm:"column:user_id;primaryKey" json:"user_id" yaml:"user_id"`
	CoachID string `gorm:"column:coach_id;primaryKey" json:"coach_id" yaml:"coach_id"`
}

func (UserCoach) TableName() string { return "user_coach" }
