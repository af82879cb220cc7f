package domain

import "errors"

// Ingestion-boundary failures. Messages are shown to end users as-is.
var (
	ErrNotCSV       = errors.New("Please upload a valid CSV file.")
	ErrNoRows       = errors.New("No data found in CSV.")
	ErrNoDataset    = errors.New("no reviews loaded yet")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
