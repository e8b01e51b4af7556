package models

import (
	"time"

	"github.com/google/uuid"
)

type RaceStatus string

const (
	RaceStatusPending   RaceStatus = "PENDING"
	RaceStatusOpen      RaceStatus = "OPEN"
	RaceStatusClosed    RaceStatus = "CLOSED"
	RaceStatusCompleted RaceStatus = "COMPLETED"
)

// Race represents a single race event bettors can wager on
type Race struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string     `gorm:"size:500;not null" json:"title"`
	Status        RaceStatus `gorm:"size:50;not null;default:PENDING;index" json:"status"`
	HorseCount    int        `gorm:"not null" json:"horse_count"`
	WinningHorse  *int       `json:"winning_horse"`
	ScheduledAt   time.Time  `gorm:"not null" json:"scheduled_at"`
	Horses        []Horse    `gorm:"foreignKey:RaceID" json:"horses,omitempty"`
	CreatedAt     time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	UpdatedAt     time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Race) TableName() string {
	return "races"
}

// Horse represents a numbered runner in a race. Numbers are stable 1..N
// and immutable once the race exists.
type Horse struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RaceID uuid.UUID `gorm:"type:uuid;not null;index:idx_horses_race_number,unique" json:"race_id"`
	Number int       `gorm:"not null;index:idx_horses_race_number,unique" json:"number"`
	Name   string    `gorm:"size:255;not null" json:"name"`
}

func (Horse) TableName() string {
	return "horses"
}

// CreateRaceRequest represents an admin request to create a race
type CreateRaceRequest struct {
	Title       string    `json:"title" binding:"required"`
	HorseNames  []string  `json:"horse_names"`
	HorseCount  int       `json:"horse_count"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
}

// RaceResponse represents a race in API responses, with live pool data
type RaceResponse struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Status       string          `json:"status"`
	WinningHorse *int            `json:"winning_horse"`
	ScheduledAt  time.Time       `json:"scheduled_at"`
	TotalPool    string          `json:"total_pool"`
	Horses       []HorseResponse `json:"horses"`
}

// HorseResponse carries a horse with its current pool and pari-mutuel odds
type HorseResponse struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Pool   string `json:"pool"`
	Odds   string `json:"odds"`
}
