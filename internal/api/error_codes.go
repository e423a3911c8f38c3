// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"
	ErrorUnauthorized  = "UNAUTHORIZED"
	ErrorValidation    = "VALIDATION_ERROR"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"

	// 实体相关错误
	ErrorEntityNotFound  = "ENTITY_NOT_FOUND"
	ErrorEntityExists    = "ENTITY_EXISTS"
	ErrorPatchInvalid    = "PATCH_INVALID"
	ErrorVariableLocked  = "VARIABLE_LOCKED"
	ErrorProjectNotFound = "PROJECT_NOT_FOUND"

	// LLM服务相关错误
	ErrorLLMServiceUnavailable = "LLM_SERVICE_UNAVAILABLE"
	ErrorAPIKeyMissing         = "API_KEY_MISSING"

	// 导入导出相关错误
	ErrorExportFailed = "EXPORT_FAILED"
	ErrorImportFailed = "IMPORT_FAILED"
	ErrorResetFailed  = "RESET_FAILED"
)
