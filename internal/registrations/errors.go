package registrations

import "errors"

var (
	// ErrNotFound is returned when an application does not exist.
	ErrNotFound = errors.New("application not found")
	// ErrDuplicateReference is returned when an application reference is already taken.
	ErrDuplicateReference = errors.New("duplicate application reference")
)

// MissingFieldError reports the first required field that was empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "Missing required field: " + e.Field
}

// OversizedFileError reports the first file above the size ceiling.
type OversizedFileError struct {
	FileName string
	Limit    int64
}

func (e *OversizedFileError) Error() string {
	limit := e.Limit
	if limit <= 0 {
		limit = MaxFileBytes
	}
	return "File exceeds " + sizeLabel(limit) + " limit: " + e.FileName
}

// MissingDocumentsError lists every required document type with no files.
type MissingDocumentsError struct {
	Types []DocumentType
}

func (e *MissingDocumentsError) Error() string {
	return "Missing required documents"
}

// FieldTooLongError reports the first text field above the per-field ceiling.
type FieldTooLongError struct {
	Field string
	Limit int64
}

func (e *FieldTooLongError) Error() string {
	return "Field exceeds " + sizeLabel(e.Limit) + " limit: " + e.Field
}

// RequestTooLargeError reports a body cut off by the configured request ceiling
// before any oversized file was seen.
type RequestTooLargeError struct {
	Limit int64
}

func (e *RequestTooLargeError) Error() string {
	return "Request exceeds " + sizeLabel(e.Limit) + " limit"
}

// IsValidation reports whether err is one of the client-correctable intake errors.
func IsValidation(err error) bool {
	var mf *MissingFieldError
	var of *OversizedFileError
	var md *MissingDocumentsError
	var fl *FieldTooLongError
	var rl *RequestTooLargeError
	return errors.As(err, &mf) || errors.As(err, &of) || errors.As(err, &md) ||
		errors.As(err, &fl) || errors.As(err, &rl)
}
