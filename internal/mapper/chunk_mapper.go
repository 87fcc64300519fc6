package mapper

import (
	"studyforge-be/internal/entity"
	"studyforge-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type ChunkMapper struct{}

func NewChunkMapper() *ChunkMapper {
	return &ChunkMapper{}
}

func (m *ChunkMapper) ToEntity(c *model.ContextChunk) *entity.ContextChunk {
	if c == nil {
		return nil
	}

	var embedding []float32
	if c.Embedding != nil {
		embedding = c.Embedding.Slice()
	}

	return &entity.ContextChunk{
		Id:          c.Id,
		ChunkID:     c.ChunkId,
		ModuleId:    c.ModuleId,
		CourseId:    c.CourseId,
		FileId:      c.FileId,
		Provider:    c.Provider,
		SlideOrPage: c.SlideOrPage,
		StartSec:    c.StartSec,
		EndSec:      c.EndSec,
		Heading:     c.Heading,
		Text:        c.Text,
		TokensEst:   c.TokensEst,
		Embedding:   embedding,
		CreatedAt:   c.CreatedAt,
	}
}

func (m *ChunkMapper) ToModel(c *entity.ContextChunk) *model.ContextChunk {
	if c == nil {
		return nil
	}

	var embedding *pgvector.Vector
	if len(c.Embedding) > 0 {
		v := pgvector.NewVector(c.Embedding)
		embedding = &v
	}

	return &model.ContextChunk{
		Id:          c.Id,
		ChunkId:     c.ChunkID,
		ModuleId:    c.ModuleId,
		CourseId:    c.CourseId,
		FileId:      c.FileId,
		Provider:    c.Provider,
		SlideOrPage: c.SlideOrPage,
		StartSec:    c.StartSec,
		EndSec:      c.EndSec,
		Heading:     c.Heading,
		Text:        c.Text,
		TokensEst:   c.TokensEst,
		Embedding:   embedding,
		CreatedAt:   c.CreatedAt,
	}
}
