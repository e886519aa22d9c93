package models

import "errors"

// Custom errors
var (
	ErrNotFound             = errors.New("record not found")
	ErrDuplicateKey         = errors.New("duplicate key violation")
	ErrVariantNameRequired  = errors.New("variant name is required")
	ErrCatalogCorrupt       = errors.New("strategy catalog corrupt")
	ErrOutcomeMissing       = errors.New("game outcome not resolved")
	ErrAmbiguousArbitration = errors.New("ambiguous arbitration margin")
	ErrJuiceFilterReject    = errors.New("juice filter rejected recommendation")
	ErrQuietPeriod          = errors.New("collection suspended by quiet period")
	ErrInvalidWindow        = errors.New("invalid time window")
	ErrBudgetExhausted      = errors.New("source budget exhausted")
)
