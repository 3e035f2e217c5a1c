package repository

import (
	"context"
	"errors"

	"example.com/backstage/services/interactions/internal/database"
	"example.com/backstage/services/interactions/internal/models"

	"gorm.io/gorm"
)

// Repository provides data access methods for interaction records
type Repository interface {
	ListInteractions(ctx context.Context, skip, limit int) ([]*models.CustomerInteraction, error)
	CreateInteraction(ctx context.Context, interaction *models.CustomerInteraction) error
	FindInteractionByID(ctx context.Context, id uint) (*models.CustomerInteraction, error)
	ReplaceInteraction(ctx context.Context, id uint, in *models.InteractionInput) (*models.CustomerInteraction, error)
	DeleteInteraction(ctx context.Context, id uint) error
}

// repo is an implementation of the Repository interface
type repo struct {
	db database.DB
}

// NewRepository creates a new repository instance
func NewRepository(db database.DB) Repository {
	return &repo{
		db: db,
	}
}

func (r *repo) conn(ctx context.Context) (*gorm.DB, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}
	return gormDB.WithContext(ctx), nil
}

func (r *repo) ListInteractions(ctx context.Context, skip, limit int) ([]*models.CustomerInteraction, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	interactions := make([]*models.CustomerInteraction, 0)
	if err := gormDB.Order("id").Offset(skip).Limit(limit).Find(&interactions).Error; err != nil {
		return nil, err
	}

	return interactions, nil
}

// CreateInteraction inserts the record and reloads it so server-assigned
// columns are populated on every dialect.
func (r *repo) CreateInteraction(ctx context.Context, interaction *models.CustomerInteraction) error {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return err
	}

	if err := gormDB.Create(interaction).Error; err != nil {
		return err
	}

	return gormDB.First(interaction, interaction.ID).Error
}

func (r *repo) FindInteractionByID(ctx context.Context, id uint) (*models.CustomerInteraction, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	return findByID(gormDB, id)
}

// ReplaceInteraction overwrites customer_id, event_type and payload. A
// missing id leaves the table untouched.
func (r *repo) ReplaceInteraction(ctx context.Context, id uint, in *models.InteractionInput) (*models.CustomerInteraction, error) {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	var updated *models.CustomerInteraction
	err = gormDB.Transaction(func(tx *gorm.DB) error {
		existing, err := findByID(tx, id)
		if err != nil {
			return err
		}

		replacement := models.NewInteraction(in, existing.IngestedAt)
		if err := tx.Model(existing).Updates(map[string]interface{}{
			"customer_id": replacement.CustomerID,
			"event_type":  replacement.EventType,
			"payload":     replacement.Payload,
		}).Error; err != nil {
			return err
		}

		updated, err = findByID(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *repo) DeleteInteraction(ctx context.Context, id uint) error {
	gormDB, err := r.conn(ctx)
	if err != nil {
		return err
	}

	result := gormDB.Delete(&models.CustomerInteraction{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func findByID(db *gorm.DB, id uint) (*models.CustomerInteraction, error) {
	var interaction models.CustomerInteraction
	if err := db.First(&interaction, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &interaction, nil
}
