package types

// Response is the body of every error reply.
type Response struct {
	Success   bool   `json:"success" example:"false"`
	Error     string `json:"error" example:"Itinerary not found"`
	RequestID string `json:"request_id,omitempty"`
}
