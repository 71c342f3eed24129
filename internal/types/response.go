package types

// Response is the generic envelope used for errors and simple acknowledgements.
type Response struct {
	Success   bool   `json:"success" example:"true"`                           // Indicates if the operation was successful.
	Message   string `json:"message,omitempty" example:"Operation successful"` // Optional success message.
	Error     string `json:"error,omitempty" example:"Book not found"`         // Optional error message.
	RequestID string `json:"request_id,omitempty"`
}
