package dto

import "github.com/noah-isme/studyhub-api/internal/models"

// CollegeRequest creates or replaces a directory entry.
type CollegeRequest struct {
	Name        string             `json:"name" validate:"required,max=200"`
	Location    string             `json:"location" validate:"max=200"`
	Affiliation string             `json:"affiliation" validate:"max=200"`
	Type        models.CollegeType `json:"type" validate:"required,oneof=public private community"`
	Website     string             `json:"website" validate:"omitempty,url"`
	Phone       string             `json:"phone" validate:"max=40"`
	Programs    []string           `json:"programs" validate:"dive,required,max=80"`
}

// CollegeQuery captures directory query parameters.
type CollegeQuery struct {
	Search      string `form:"search"`
	Affiliation string `form:"affiliation"`
	Type        string `form:"type"`
	Page        int    `form:"page"`
	PageSize    int    `form:"pageSize"`
}
