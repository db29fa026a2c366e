package domain

// Общий конверт ответа API
type APIError struct {
	Code int    `json:"code,omitempty"`
	Text string `json:"text,omitempty"`
}

type APIEnvelope struct {
	Error    *APIError `json:"error,omitempty"`
	Response any       `json:"response,omitempty"`
	Data     any       `json:"data,omitempty"`
}

// Коды ошибок в теле конверта (отдельно от HTTP-статуса)
const (
	ErrCodeBadParams          = 1000
	ErrCodeUnauth             = 1001
	ErrCodeForbidden          = 1003
	ErrCodeNotFound           = 1004
	ErrCodeMethodNotAllowed   = 1405
	ErrCodeStorageUnavailable = 1503
	ErrCodePartialFailure     = 1509
	ErrCodeUnexpected         = 1500
)

// Утилиты для сборки конвертов
func OkResponse(resp any) APIEnvelope { return APIEnvelope{Response: resp} }
func OkData(data any) APIEnvelope     { return APIEnvelope{Data: data} }
func Fail(code int, text string) APIEnvelope {
	return APIEnvelope{Error: &APIError{Code: code, Text: text}}
}
