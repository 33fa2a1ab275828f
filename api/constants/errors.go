package constants

import "fmt"

// ============================================================================
// AUTHENTICATION & SESSION ERRORS
// ============================================================================

const (
	ErrInvalidSession   = "Your session has expired or is invalid. Please login again"
	ErrPleaseLogin      = "Please login to continue."
	ErrLoginFailed      = "Login failed. Check the passphrase and try again"
	ErrAuthUnavailable  = "Auth service unavailable"
	ErrMethodNotAllowed = "Method Not Allowed"
	ErrInvalidJSONShort = "Invalid JSON"
)

// ============================================================================
// TEMPLATE ERRORS
// ============================================================================

const (
	ErrTemplateRequest      = "class, term and year are required"
	ErrNoSubjectsConfigured = "No subjects are configured for this class or the school. Add subjects before generating a template"
	ErrTemplateFailed       = "Failed to generate template"
)

// ============================================================================
// FILE UPLOAD ERRORS
// ============================================================================

const (
	ErrFileRequired        = "A spreadsheet file is required in the 'file' field"
	ErrFileTooLarge        = "File size exceeds the maximum limit of %d MB"
	ErrEmptyFile           = "Uploaded file is empty"
	ErrInvalidFileFormat   = "Invalid file format. Please upload an .xlsx, .xls or .csv file"
	ErrIdentityColumn      = "No registration number column found. Add a column whose header contains Reg, Number or ID"
	ErrAmountColumn        = "No Amount column found in the payment sheet"
	ErrMarkColumn          = "No Mark column found for a single-subject upload"
	ErrTermYearRequired    = "term and year are required"
	ErrInvalidYear         = "year must be a four digit number"
	ErrPersistenceFailed   = "Saving to the database failed: %s"
	ErrDuplicatePaymentRun = "This file was already imported on %s (run %s). Payments were imported again"
)

// ============================================================================
// GENERAL ERRORS
// ============================================================================

const (
	ErrInternalServer = "Internal server error. Please contact support"
	ErrDB             = "DB error"
)

// ============================================================================
// HELPER FUNCTIONS TO FORMAT ERRORS WITH CONTEXT
// ============================================================================

// FormatError formats an error message with additional context
func FormatError(baseError string, context ...interface{}) string {
	if len(context) == 0 {
		return baseError
	}
	return fmt.Sprintf(baseError, context...)
}
