package service

import (
	"context"
	"errors"
	"time"

	"example.com/backstage/services/interactions/internal/models"
	"example.com/backstage/services/interactions/internal/repository"

	"github.com/sirupsen/logrus"
)

// Service defines the business logic operations
type Service interface {
	ListInteractions(ctx context.Context, skip, limit int) ([]*models.CustomerInteraction, error)
	CreateInteraction(ctx context.Context, in *models.InteractionInput) (*models.CustomerInteraction, error)
	GetInteraction(ctx context.Context, id uint) (*models.CustomerInteraction, error)
	UpdateInteraction(ctx context.Context, id uint, in *models.InteractionInput) (*models.CustomerInteraction, error)
	DeleteInteraction(ctx context.Context, id uint) error
}

// service is an implementation of the Service interface
type service struct {
	repo  repository.Repository
	log   *logrus.Logger
	clock func() time.Time
}

// ServiceConfig holds the configuration for the service
type ServiceConfig struct {
	Repository repository.Repository
	Logger     *logrus.Logger
	// Clock stamps ingested_at on insert. Defaults to the current UTC time.
	Clock      func() time.Time
}

// NewService creates a new service instance
func NewService(config ServiceConfig) (Service, error) {
	if config.Repository == nil {
		return nil, errors.New("repository is required")
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.Clock == nil {
		config.Clock = func() time.Time { return time.Now().UTC() }
	}

	return &service{
		repo:  config.Repository,
		log:   config.Logger,
		clock: config.Clock,
	}, nil
}

func (s *service) ListInteractions(ctx context.Context, skip, limit int) ([]*models.CustomerInteraction, error) {
	return s.repo.ListInteractions(ctx, skip, limit)
}

func (s *service) CreateInteraction(ctx context.Context, in *models.InteractionInput) (*models.CustomerInteraction, error) {
	interaction := models.NewInteraction(in, s.clock())
	if err := s.repo.CreateInteraction(ctx, interaction); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"interaction_id": interaction.ID,
		"customer_id":    interaction.CustomerID,
		"event_type":     interaction.EventType,
	}).Debug("Interaction recorded")

	return interaction, nil
}

func (s *service) GetInteraction(ctx context.Context, id uint) (*models.CustomerInteraction, error) {
	return s.repo.FindInteractionByID(ctx, id)
}

func (s *service) UpdateInteraction(ctx context.Context, id uint, in *models.InteractionInput) (*models.CustomerInteraction, error) {
	interaction, err := s.repo.ReplaceInteraction(ctx, id, in)
	if err != nil {
		return nil, err
	}

	s.log.WithField("interaction_id", id).Debug("Interaction replaced")
	return interaction, nil
}

func (s *service) DeleteInteraction(ctx context.Context, id uint) error {
	if err := s.repo.DeleteInteraction(ctx, id); err != nil {
		return err
	}

	s.log.WithField("interaction_id", id).Debug("Interaction deleted")
	return nil
}
