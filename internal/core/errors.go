package core

import "errors"

var (
	ErrConnection     = errors.New("mail connection failed")
	ErrClassification = errors.New("classification failed")
	ErrInvalidLabel   = errors.New("label outside taxonomy")
	ErrIndexWrite     = errors.New("index write failed")
	ErrNotification   = errors.New("notification delivery failed")
	ErrEmbedding      = errors.New("embedding failed")
	ErrNoMatchFound   = errors.New("no matching example found")
	ErrGeneration     = errors.New("generation failed")
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrExpired        = errors.New("entry expired")
)
