// Copyright 2025 Certen Protocol

package walletmsg

import "fmt"

type ParseBigDecimalError struct{ Input string }

func (e ParseBigDecimalError) Error() string { return fmt.Sprintf("cannot parse %q as a decimal amount", e.Input) }

type ParseBigUintError struct{ Input string }

func (e ParseBigUintError) Error() string { return fmt.Sprintf("cannot parse %q as an unsigned integer", e.Input) }

// AccountNotDeployed is returned when the builder needs current contract
// state to construct a message (HighloadWallet query id, Wallet v3 seqno)
// but the account has never been deployed.
type AccountNotDeployed struct{ Address string }

func (e AccountNotDeployed) Error() string { return fmt.Sprintf("account not deployed: %s", e.Address) }

// ErrCustodiansNotFound is returned for a SafeMultisig address whose
// custodians field is null (spec.md §3 invariant (b) violated upstream).
var ErrCustodiansNotFound = fmt.Errorf("custodians not found for multisig address")

// InvalidAccountType is returned for an operation that does not apply to
// the account's type, e.g. a generic-message call on a HighloadWallet.
type InvalidAccountType struct {
	AccountType string
	Operation   string
}

func (e InvalidAccountType) Error() string {
	return fmt.Sprintf("operation %q is not valid for account type %q", e.Operation, e.AccountType)
}
