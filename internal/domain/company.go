package domain

import "time"

// Company es el registro de una empresa del directorio.
// RegistrationIdentifier se expone como krsNIPorHRB para mantener el contrato del frontend.
type Company struct {
	ID                     string    `json:"id"`
	CompanyName            string    `json:"companyName"`
	RegistrationIdentifier string    `json:"krsNIPorHRB"`
	Status                 string    `json:"status"`
	Description            string    `json:"description"`
	Country                string    `json:"country"`
	Industry               string    `json:"industry"`
	EmployeeCount          string    `json:"employeeCount"`
	FoundedYear            int       `json:"foundedYear"`
	Address                string    `json:"address"`
	Website                string    `json:"website"`
	ContactEmail           string    `json:"contactEmail"`
	PhoneNumber            string    `json:"phoneNumber"`
	Revenue                string    `json:"revenue"`
	Management             []string  `json:"management"`
	ProductsAndServices    []string  `json:"productsAndServices"`
	TechnologiesUsed       []string  `json:"technologiesUsed"`
	LastUpdated            string    `json:"lastUpdated"`
	OwnerID                *string   `json:"ownerId"`
	IsPublic               bool      `json:"isPublic"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// VisibleTo indica si el visitante puede leer el registro. Un visitante nil es anónimo.
func (c Company) VisibleTo(viewer *Identity) bool {
	if c.IsPublic {
		return true
	}
	if viewer == nil || c.OwnerID == nil {
		return false
	}
	return *c.OwnerID == viewer.UserID
}
