package interfaces

import "summard/internal/models"

type AvailabilityStoreInterface interface {
	Load() ([]models.AvailabilityRecord, error)
	Save(records []models.AvailabilityRecord) error
}
