package caddypubresolver

import (
	"github.com/philiph/caddy-pub-resolver/internal/core/domain"
)

// Re-export error types from domain package
type ErrorCode = domain.ErrorCode
type AppError = domain.AppError
type JSONErrorResponse = domain.JSONErrorResponse
type JSONErrorDetail = domain.JSONErrorDetail

// Re-export error code constants
const (
	ErrCodeConfigMissing       = domain.ErrCodeConfigMissing
	ErrCodePublicationNotFound = domain.ErrCodePublicationNotFound
	ErrCodeDiscoveryFailed     = domain.ErrCodeDiscoveryFailed
	ErrCodeServiceError        = domain.ErrCodeServiceError
	ErrCodeBadRequest          = domain.ErrCodeBadRequest
)

// Re-export error constructors
var (
	ConfigError              = domain.ConfigError
	PublicationNotFoundError = domain.PublicationNotFoundError
	DiscoveryError           = domain.DiscoveryError
	ServiceError             = domain.ServiceError
	BadRequestError          = domain.BadRequestError
	NewJSONErrorResponse     = domain.NewJSONErrorResponse
)
