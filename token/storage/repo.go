// Package storage persists the session's token pair under the two keys
// authToken and refreshToken. Both keys are written together and removed
// together; a backend never reports one without the other.
package storage

import (
	"context"

	apperrors "github.com/jrsteele09/storefront-admin/internal/errors"
)

const (
	KeyAuthToken    = "authToken"
	KeyRefreshToken = "refreshToken"
)

var (
	ErrNotFound      = apperrors.ErrNotFound
	ErrPartialRecord = apperrors.ErrPartialRecord
)

// Record is the persisted token pair
type Record struct {
	AuthToken    string `json:"authToken"`
	RefreshToken string `json:"refreshToken"`
}

func (r Record) complete() bool {
	return r.AuthToken != "" && r.RefreshToken != ""
}

func (r Record) empty() bool {
	return r.AuthToken == "" && r.RefreshToken == ""
}

// Repo is durable client storage for the token pair.
type Repo interface {
	// Load returns ErrNotFound unless both keys are present
	Load(ctx context.Context) (Record, error)

	// Save writes both keys; a record missing either token is rejected with ErrPartialRecord
	Save(ctx context.Context, record Record) error

	// Clear removes both keys. Clearing an empty store is not an error.
	Clear(ctx context.Context) error

	Close() error
}

func validate(record Record) error {
	if !record.complete() {
		return ErrPartialRecord
	}
	return nil
}
