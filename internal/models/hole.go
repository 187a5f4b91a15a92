package models

import "github.com/google/uuid"

// Hole is a drilling hole definition in the hole library.
type Hole struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"` // unique library code
	Name       string    `json:"name"`
	DiameterMM *float64  `json:"diameter_mm,omitempty"`
	DepthMM    *float64  `json:"depth_mm,omitempty"`
}
