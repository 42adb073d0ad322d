package suppliers

import "strings"

// SupplierRequest is the create/update payload.
type SupplierRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	ContactPerson string `json:"contact_person" validate:"max=200"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" validate:"max=50"`
	Address       string `json:"address" validate:"max=500"`
	City          string `json:"city" validate:"max=100"`
	State         string `json:"state" validate:"max=100"`
	PostalCode    string `json:"postal_code" validate:"max=20"`
	Country       string `json:"country" validate:"max=100"`
	Status        string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (r SupplierRequest) toSupplier() Supplier {
	status := r.Status
	if status == "" {
		status = "active"
	}
	return Supplier{
		Name:          strings.TrimSpace(r.Name),
		ContactPerson: strings.TrimSpace(r.ContactPerson),
		Email:         strings.TrimSpace(r.Email),
		Phone:         strings.TrimSpace(r.Phone),
		Address:       r.Address,
		City:          r.City,
		State:         r.State,
		PostalCode:    r.PostalCode,
		Country:       r.Country,
		Status:        status,
	}
}
