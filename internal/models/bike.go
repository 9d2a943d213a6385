package models

import "time"

type Bike struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Model       string    `yaml:"model" json:"model"`
	Price       float64   `yaml:"price" json:"price"`
	Image       string    `yaml:"image" json:"image"`
	Description string    `yaml:"description" json:"description"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updated_at"`
}

// BikeGroup is the catalog grouped by bike name.
type BikeGroup struct {
	Name  string  `json:"name"`
	Bikes []*Bike `json:"bikes"`
}
