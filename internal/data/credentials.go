package data

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Blue-Davinci/SmartSave/internal/kvstore"
	"github.com/Blue-Davinci/SmartSave/internal/validator"
)

const OpenAIAPIKeyKey = "openai_api_key"

var (
	ErrCredentialNotFound   = errors.New("credential not found")
	ErrCredentialUnreadable = errors.New("stored credential cannot be decrypted")
)

// CredentialModel stores the assistant API key, AES-GCM encrypted when an
// encryption key is configured.
type CredentialModel struct {
	Store         kvstore.Store
	EncryptionKey []byte
}

func ValidateAPIKey(v *validator.Validator, key string) {
	v.Check(key != "", "api_key", "must be provided")
	v.Check(len(key) <= 512, "api_key", "must not be more than 512 bytes long")
	v.Check(!strings.ContainsAny(key, " \t\r\n"), "api_key", "must not contain whitespace")
}

func (m CredentialModel) SetAPIKey(ctx context.Context, key string) error {
	value := key
	if len(m.EncryptionKey) > 0 {
		encrypted, err := EncryptData(key, m.EncryptionKey)
		if err != nil {
			return err
		}
		value = encrypted
	}
	ctx, cancel := contextGenerator(ctx, DefaultStoreContextTimeout)
	defer cancel()
	return kvstore.SetJSON(ctx, m.Store, OpenAIAPIKeyKey, value)
}

// GetAPIKey returns the stored key or ErrCredentialNotFound.
func (m CredentialModel) GetAPIKey(ctx context.Context) (string, error) {
	ctx, cancel := contextGenerator(ctx, DefaultStoreContextTimeout)
	defer cancel()

	value, err := kvstore.GetJSON(ctx, m.Store, OpenAIAPIKeyKey, "")
	if err != nil {
		return "", err
	}
	if value == "" {
		return "", ErrCredentialNotFound
	}
	if len(m.EncryptionKey) == 0 {
		return value, nil
	}
	decrypted, err := DecryptData(value, m.EncryptionKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentialUnreadable, err)
	}
	return decrypted, nil
}

func (m CredentialModel) RemoveAPIKey(ctx context.Context) error {
	ctx, cancel := contextGenerator(ctx, DefaultStoreContextTimeout)
	defer cancel()
	return kvstore.Remove(ctx, m.Store, OpenAIAPIKeyKey)
}
