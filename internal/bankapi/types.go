package bankapi

import (
	"time"

	"github.com/tamasbrandstadter/banking-gateway/internal/amount"
)

// Auth identifies the caller towards the remote API. It is taken from the
// session on every call, the client keeps no credentials of its own.
type Auth struct {
	UserID int64
	Token  string
}

type Transaction struct {
	ID            int64         `json:"id"`
	Number        string        `json:"transactionNumber"`
	Type          string        `json:"transactionType"`
	AccountNumber string        `json:"accountNumber,omitempty"`
	Amount        amount.Amount `json:"amount"`
	BalanceAfter  amount.Amount `json:"balanceAfterTransaction"`
	Category      string        `json:"categoryName,omitempty"`
	Description   string        `json:"description"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type DepositPayload struct {
	AccountNumber string        `json:"accountNumber"`
	Amount        amount.Amount `json:"amount"`
	Description   string        `json:"description"`
	Category      string        `json:"categoryName"`
}

type WithdrawPayload struct {
	AccountNumber string        `json:"accountNumber"`
	Amount        amount.Amount `json:"amount"`
	Description   string        `json:"description"`
	Category      string        `json:"categoryName"`
}

type TransferPayload struct {
	FromAccount string        `json:"fromAccount"`
	ToAccount   string        `json:"toAccount"`
	Amount      amount.Amount `json:"amount"`
	Description string        `json:"description"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	Email     string `json:"email"`
	Token     string `json:"token"`
}

type balanceResponse struct {
	AccountNumber string        `json:"accountNumber"`
	Balance       amount.Amount `json:"balance"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type RegisterRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName,omitempty"`
	PhoneNumber string `json:"phoneNumber"`
}

type ProfileUpdate struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

type AddressRequest struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	County   string `json:"county"`
	PostCode string `json:"postCode"`
	Country  string `json:"country"`
}

type Address struct {
	ID       int64  `json:"id"`
	Street   string `json:"street"`
	City     string `json:"city"`
	County   string `json:"county,omitempty"`
	PostCode string `json:"postCode"`
	Country  string `json:"country"`
	UserID   int64  `json:"userId"`
}

// Category is a transaction category, CategoryType is one of income,
// expense or transfer.
type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	CategoryType string `json:"categoryType"`
	System       bool   `json:"system"`
}

type accountTypeRequest struct {
	AccountType string `json:"accountType"`
}
