// Package response defines the JSON envelopes returned by the API.
package response

// Response is the success envelope. Exactly one of Data or Message is set.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	MsgTargetURLRequired = "Target URL is required"
	MsgInvalidURL        = "Invalid URL format"
	MsgInvalidCode       = "Custom code must be 6-8 alphanumeric characters"
	MsgInvalidBody       = "Invalid request body"
	MsgCodeExists        = "Code already exists. Please choose a different code."
	MsgLinkNotFound      = "Link not found"
	MsgInternalError     = "Internal server error"
	MsgLinkDeleted       = "Link deleted successfully"
)

var (
	TargetURLRequired = Error(MsgTargetURLRequired)
	InvalidURL        = Error(MsgInvalidURL)
	InvalidCode       = Error(MsgInvalidCode)
	InvalidBody       = Error(MsgInvalidBody)
	CodeExists        = Error(MsgCodeExists)
	LinkNotFound      = Error(MsgLinkNotFound)
	InternalError     = Error(MsgInternalError)
)

func Success(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

func Message(msg string) Response {
	return Response{
		Success: true,
		Message: msg,
	}
}

func Error(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}
