package data

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Blue-Davinci/SmartSave/internal/kvstore"
	"github.com/Blue-Davinci/SmartSave/internal/validator"
)

var (
	ErrGeneralRecordNotFound = errors.New("finance record not found")
	ErrGeneralEditConflict   = errors.New("edit conflict")
	ErrDuplicateGoalName     = errors.New("duplicate goal name")
	ErrDuplicateGoalID       = errors.New("duplicate goal id")
)

// ValidationError carries the per-field messages collected by a validator.
type ValidationError struct {
	Errors map[string]string
}

func newValidationError(v *validator.Validator) *ValidationError {
	return &ValidationError{Errors: v.Errors}
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Errors[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type Models struct {
	Goals       GoalManagerModel
	ChatHistory ChatHistoryModel
	Credentials CredentialModel
}

// NewModels wires every model to the same key-value store.
// encryptionKey may be nil, in which case credentials are stored in clear.
func NewModels(store kvstore.Store, encryptionKey []byte, chatHistoryLimit int) Models {
	return Models{
		Goals:       GoalManagerModel{Store: store},
		ChatHistory: ChatHistoryModel{Store: store, Limit: chatHistoryLimit},
		Credentials: CredentialModel{Store: store, EncryptionKey: encryptionKey},
	}
}

// mapStoreError translates storage-level conflicts into the data layer's sentinel.
func mapStoreError(err error) error {
	if errors.Is(err, kvstore.ErrVersionConflict) {
		return ErrGeneralEditConflict
	}
	return err
}
