package service

import (
	"context"
	"errors"
	"io"
)

// ErrScannerUnsupported is returned when no document scanner is reachable.
var ErrScannerUnsupported = errors.New("scanner not supported")

// ScannerFallbackMessage is shown to the operator when scanning is unavailable.
const ScannerFallbackMessage = "Unable to access the scanner. This feature may not be supported on this server."

// Scan is one scanned page set ready to be stored as an attachment.
type Scan struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

type Scanner interface {
	Scan(ctx context.Context) (*Scan, error)
}

// UnsupportedScanner is wired when no scanner integration exists.
type UnsupportedScanner struct{}

func (UnsupportedScanner) Scan(context.Context) (*Scan, error) {
	return nil, ErrScannerUnsupported
}
