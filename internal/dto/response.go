package dto

// Response is the envelope every endpoint answers with. The error fields are
// independently optional and omitted when unset.
type Response struct {
	Success             bool    `json:"success"`
	Data                any     `json:"data"`
	StatusCode          *int    `json:"status_code,omitempty"`
	UserFriendlyMessage *string `json:"user_friendly_message,omitempty"`
	ErrorCode           *string `json:"error_code,omitempty"`
}

func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Error builds a failed response. Empty message or code are left unset.
func Error(status int, message, code string) Response {
	r := Response{Success: false, StatusCode: &status}
	if message != "" {
		r.UserFriendlyMessage = &message
	}
	if code != "" {
		r.ErrorCode = &code
	}
	return r
}
