// Copyright 2025 Certen Protocol
//
// Repositories - Convenience wrapper for all database repositories
// Provides a single point of access to all repository types

package database

// Repositories holds all repository instances
type Repositories struct {
	Services          *ServiceRepository
	Addresses         *AddressRepository
	Transactions      *TransactionRepository
	TokenTransactions *TokenTransactionRepository
	Events            *EventRepository
	Whitelist         *WhitelistRepository
}

// NewRepositories creates all repositories with the given client
func NewRepositories(client *Client) *Repositories {
	return &Repositories{
		Services:          NewServiceRepository(client),
		Addresses:         NewAddressRepository(client),
		Transactions:      NewTransactionRepository(client),
		TokenTransactions: NewTokenTransactionRepository(client),
		Events:            NewEventRepository(client),
		Whitelist:         NewWhitelistRepository(client),
	}
}
