package entity

import "github.com/google/uuid"

// GenConfiguration is one runtime-tunable pipeline setting (key-value).
type GenConfiguration struct {
	Id          uuid.UUID
	Key         string
	Value       string
	ValueType   string
	Description string
	Category    string
}
