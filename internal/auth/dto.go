package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shivanand-vn/SVPharma-sub000/pkg/db/models"
)

// LoginRequest carries the credentials posted to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CustomerSummary is the customer shape returned after a login.
type CustomerSummary struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	DueAmount decimal.Decimal `json:"due_amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// LoginResponse wraps the minted token and the authenticated customer.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Customer    CustomerSummary `json:"customer"`
}

// FromModel maps a customer record onto the login summary.
func FromModel(customer *models.Customer) CustomerSummary {
	return CustomerSummary{
		ID:        customer.ID,
		Name:      customer.Name,
		Email:     customer.Email,
		DueAmount: customer.DueAmount,
		CreatedAt: customer.CreatedAt,
	}
}
