package dto

// CheckoutRequest payload collected by the ticket form.
type CheckoutRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Method string `json:"method"`
}

// CheckoutResponse points the browser at the hosted payment page.
type CheckoutResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
