package mapper

import (
	"studyforge-be/internal/entity"
	"studyforge-be/internal/model"
)

type GenConfigMapper struct{}

func NewGenConfigMapper() *GenConfigMapper {
	return &GenConfigMapper{}
}

func (m *GenConfigMapper) ToEntity(c *model.GenConfiguration) *entity.GenConfiguration {
	if c == nil {
		return nil
	}
	return &entity.GenConfiguration{
		Id:          c.Id,
		Key:         c.Key,
		Value:       c.Value,
		ValueType:   c.ValueType,
		Description: c.Description,
		Category:    c.Category,
	}
}

func (m *GenConfigMapper) ToModel(c *entity.GenConfiguration) *model.GenConfiguration {
	if c == nil {
		return nil
	}
	return &model.GenConfiguration{
		Id:          c.Id,
		Key:         c.Key,
		Value:       c.Value,
		ValueType:   c.ValueType,
		Description: c.Description,
		Category:    c.Category,
	}
}
