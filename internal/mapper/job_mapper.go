package mapper

import (
	"encoding/json"

	"studyforge-be/internal/entity"
	"studyforge-be/internal/model"
)

type JobMapper struct{}

func NewJobMapper() *JobMapper {
	return &JobMapper{}
}

func (m *JobMapper) ToEntity(j *model.GenerationJob) (*entity.GenerationJob, error) {
	if j == nil {
		return nil, nil
	}

	var results []entity.ModuleResult
	if len(j.ModuleResults) > 0 {
		if err := json.Unmarshal(j.ModuleResults, &results); err != nil {
			return nil, err
		}
	}

	var modules []entity.ModuleTarget
	if len(j.Modules) > 0 {
		if err := json.Unmarshal(j.Modules, &modules); err != nil {
			return nil, err
		}
	}

	return &entity.GenerationJob{
		Id:               j.Id,
		CourseId:         j.CourseId,
		CourseTitle:      j.CourseTitle,
		Status:           j.Status,
		Modules:          modules,
		TargetCards:      j.TargetCards,
		ModulesToProcess: j.ModulesToProcess,
		EstimatedSeconds: j.EstimatedSeconds,
		QueuePosition:    j.QueuePosition,
		ModuleResults:    results,
		CreatedAt:        j.CreatedAt,
		StartedAt:        j.StartedAt,
		CompletedAt:      j.CompletedAt,
	}, nil
}

func (m *JobMapper) ToModel(j *entity.GenerationJob) (*model.GenerationJob, error) {
	if j == nil {
		return nil, nil
	}

	resultsJSON, err := json.Marshal(j.ModuleResults)
	if err != nil {
		return nil, err
	}

	modulesJSON, err := json.Marshal(j.Modules)
	if err != nil {
		return nil, err
	}

	return &model.GenerationJob{
		Id:               j.Id,
		CourseId:         j.CourseId,
		CourseTitle:      j.CourseTitle,
		Status:           j.Status,
		Modules:          modulesJSON,
		TargetCards:      j.TargetCards,
		ModulesToProcess: j.ModulesToProcess,
		EstimatedSeconds: j.EstimatedSeconds,
		QueuePosition:    j.QueuePosition,
		ModuleResults:    resultsJSON,
		CreatedAt:        j.CreatedAt,
		StartedAt:        j.StartedAt,
		CompletedAt:      j.CompletedAt,
	}, nil
}
