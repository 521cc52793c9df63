// Package service implements the application's business logic on top of
// the store, token, and rate limiting layers. Handlers stay thin and all
// policy decisions live here.
package service

import (
	"github.com/vibelabapp/vibelab-server/internal/validation"
)

// validate is the shared request validator. Failures come back as domain
// validation errors carrying per-field details.
var validate = validation.New()
