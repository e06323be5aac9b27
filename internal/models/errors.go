package models

import "errors"

var (
	// ErrFeedUnavailable covers network, status and decode failures of the price source.
	ErrFeedUnavailable = errors.New("price feed unavailable")
	// ErrInvalidSample is a non-finite or non-positive price.
	ErrInvalidSample = errors.New("invalid price sample")
	// ErrOutOfOrder is a sample older than the series tail.
	ErrOutOfOrder = errors.New("sample out of order")
	// ErrUnknownAsset is a market id or asset id missing from the catalog.
	ErrUnknownAsset = errors.New("unknown asset")
	// ErrNotFound marks a lookup with nothing behind it.
	ErrNotFound     = errors.New("not found")
	// ErrSessionActive is returned when activating a session twice.
	ErrSessionActive = errors.New("session already active")
)
