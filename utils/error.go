package utils

import (
	"errors"
	"fmt"
)

var (
	ErrorRecordNotFound   = errors.New("record not found")
	ErrorDuplicateBarcode = errors.New("duplicate barcode")
	ErrorAlreadySynced    = errors.New("record already synced")
	ErrorNoMatchedAsset   = errors.New("no matched asset")
	ErrorBarcodeRequired  = errors.New("barcode is required")
)

// ValidationError is item-scoped: it names the offending row or record
// and never aborts the batch it came from.
type ValidationError struct {
	Item    string // row number or record id, e.g. "row 3" or "record 42"
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Item, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Item, e.Message)
}

func NewValidationError(item string, field string, format string, args ...any) *ValidationError {
	return &ValidationError{Item: item, Field: field, Message: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
