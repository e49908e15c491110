package logschema

// Log schema constants for foodback structured logs.
const (
	SchemaID    = "foodback.log.v1"
	FieldSchema = "log_schema"

	FieldTimestamp = "ts"
	FieldLevel     = "level"
	FieldMessage   = "msg"
	FieldLogger    = "logger"
	FieldCaller    = "caller"
	FieldStack     = "stack"

	FieldComponent = "component"
	FieldEvent     = "event"
	FieldResult    = "result"
	FieldError     = "error"
	FieldSessionID = "session_id"
	FieldStage     = "stage"
	FieldStream    = "stream"
)

// Result values used with FieldResult.
const (
	ResultSuccess = "SUCCESS"
	ResultFailure = "FAILURE"
)

// LogRecord is a generic map representation of a log entry.
type LogRecord map[string]interface{}
