// Copyright 2025 Certen Protocol
//
// Sentinel errors for repository operations. Repositories return these
// explicitly instead of (nil, nil) so callers can't mistake "not found" for
// "no error occurred".

package database

import "errors"

var (
	ErrServiceNotFound          = errors.New("service not found")
	ErrApiKeyNotFound           = errors.New("api key not found")
	ErrAddressNotFound          = errors.New("address not found")
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrTokenTransactionNotFound = errors.New("token transaction not found")
	ErrEventNotFound            = errors.New("event not found")
	ErrCallbackURLNotFound      = errors.New("callback url not found")
	ErrTokenNotWhitelisted      = errors.New("token root not whitelisted")
	ErrDuplicateTransaction     = errors.New("transaction already exists")
)
