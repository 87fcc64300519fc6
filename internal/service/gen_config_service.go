package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"studyforge-be/internal/dto"
	"studyforge-be/internal/entity"
	"studyforge-be/internal/pkg/logger"
	"studyforge-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

var ErrUnknownConfigKey = errors.New("unknown configuration key")

// tunableKeys whitelists the runtime-adjustable pipeline settings. Updates to
// anything else are rejected so a typo cannot create a dead key.
var tunableKeys = map[string]string{
	"default_target_cards": "int",
	"dedupe_threshold":     "float",
	"min_chunks":           "int",
	"top_k":                "int",
	"concurrency":          "int",
}

type IGenConfigService interface {
	GetAllConfigurations(ctx context.Context) ([]dto.GenConfigurationResponse, error)
	UpdateConfiguration(ctx context.Context, key string, req *dto.UpdateGenConfigurationRequest) (*dto.GenConfigurationResponse, error)
}

type genConfigService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewGenConfigService(uowFactory unitofwork.RepositoryFactory, sysLogger logger.ILogger) IGenConfigService {
	return &genConfigService{
		uowFactory: uowFactory,
		logger:     sysLogger,
	}
}

func (s *genConfigService) GetAllConfigurations(ctx context.Context) ([]dto.GenConfigurationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	configs, err := uow.GenConfigRepository().FindAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.GenConfigurationResponse, 0, len(configs))
	for _, c := range configs {
		out = append(out, dto.GenConfigurationResponse{
			Key:         c.Key,
			Value:       c.Value,
			ValueType:   c.ValueType,
			Description: c.Description,
			Category:    c.Category,
		})
	}
	return out, nil
}

func (s *genConfigService) UpdateConfiguration(ctx context.Context, key string, req *dto.UpdateGenConfigurationRequest) (*dto.GenConfigurationResponse, error) {
	valueType, ok := tunableKeys[key]
	if !ok {
		return nil, ErrUnknownConfigKey
	}
	if err := validateConfigValue(valueType, req.Value); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	stored, err := uow.GenConfigRepository().FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		stored = &entity.GenConfiguration{
			Id:       uuid.New(),
			Key:      key,
			Category: "generation",
		}
	}
	stored.Value = req.Value
	stored.ValueType = valueType

	if err := uow.GenConfigRepository().Upsert(ctx, stored); err != nil {
		return nil, err
	}

	s.logger.Info("CONFIG", "tunable updated", map[string]interface{}{
		"key":   key,
		"value": req.Value,
	})

	return &dto.GenConfigurationResponse{
		Key:         stored.Key,
		Value:       stored.Value,
		ValueType:   stored.ValueType,
		Description: stored.Description,
		Category:    stored.Category,
	}, nil
}

func validateConfigValue(valueType, value string) error {
	switch valueType {
	case "int":
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("value %q is not an integer", value)
		}
	case "float":
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("value %q is not a number", value)
		}
	}
	return nil
}
