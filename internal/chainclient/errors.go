// Copyright 2025 Certen Protocol

package chainclient

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrNotDeployed      = errors.New("account not deployed")
	ErrBroadcastRejected = errors.New("external message rejected by chain node")
)
