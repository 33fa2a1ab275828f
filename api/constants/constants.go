package constants

// Content Types
const (
	ContentTypeJSON      = "application/json"
	ContentTypeText      = "Content-Type"
	ContentTypeMultipart = "multipart/form-data"
	ContentTypeXLSX      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Request keys
const (
	HeaderSessionID  = "X-Session-ID"
	KeySessionID     = "session_id"
	KeyPassphrase    = "passphrase"
	FormFieldFile    = "file"
	QueryClass       = "class"
	QueryTerm        = "term"
	QueryYear        = "year"
	QuerySubject     = "subject"
	ValueSuccess     = "success"
	ValueError       = "error"
	ValueMessage     = "message"
	ValueSummary     = "summary"
	ValueWarning     = "warning"
	ValueDuplicateOf = "duplicate_of"
)

// Date formats
const (
	DateTimeFormat = "2006-01-02 15:04:05"
	DateFormat     = "2006-01-02"
)
