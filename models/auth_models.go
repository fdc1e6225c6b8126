package models

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token   string `json:"token"`
	Type    string `json:"type"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// RegisterResponse is returned by the register endpoint, successful or not.
type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
}

// MessageResponse carries a plain status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-validation error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse lists the offending fields.
type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}
