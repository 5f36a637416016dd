package models

import (
	"time"

	"github.com/lib/pq"
)

// CollegeType classifies institutions in the directory.
type CollegeType string

const (
	CollegeTypePublic    CollegeType = "public"
	CollegeTypePrivate   CollegeType = "private"
	CollegeTypeCommunity CollegeType = "community"
)

// College is one directory entry.
type College struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Location    string         `db:"location" json:"location"`
	Affiliation string         `db:"affiliation" json:"affiliation"`
	Type        CollegeType    `db:"type" json:"type"`
	Website     string         `db:"website" json:"website"`
	Phone       string         `db:"phone" json:"phone"`
	Programs    pq.StringArray `db:"programs" json:"programs"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// CollegeFilter narrows directory listing.
type CollegeFilter struct {
	Search      string
	Affiliation string
	Type        CollegeType
	Page        int
	PageSize    int
}
