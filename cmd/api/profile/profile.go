package profile

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/tamasbrandstadter/banking-gateway/internal/bankapi"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
	validateErr  error
)

// Registration is what the sign-up form sends.
type Registration struct {
	FirstName   string `json:"firstName" validate:"required,max=255"`
	LastName    string `json:"lastName" validate:"required,max=255"`
	Email       string `json:"email" validate:"required,email,max=255"`
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
	Password    string `json:"password" validate:"required,min=6,max=255"`
}

func (r Registration) Normalize() Registration {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	return r
}

func (r Registration) Payload() bankapi.RegisterRequest {
	return bankapi.RegisterRequest{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber,
		Password:    r.Password,
	}
}

type Update struct {
	FirstName   string `json:"firstName" validate:"required,max=255"`
	LastName    string `json:"lastName" validate:"required,max=255"`
	Email       string `json:"email" validate:"required,email,max=255"`
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
}

func (u Update) Normalize() Update {
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.PhoneNumber = strings.TrimSpace(u.PhoneNumber)
	return u
}

func (u Update) Payload() bankapi.ProfileUpdate {
	return bankapi.ProfileUpdate{
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
	}
}

type Address struct {
	Street   string `json:"street" validate:"required,max=255"`
	City     string `json:"city" validate:"required,max=255"`
	County   string `json:"county" validate:"required,max=255"`
	PostCode string `json:"postCode" validate:"required,max=16"`
	Country  string `json:"country" validate:"required,max=255"`
}

func (a Address) Normalize() Address {
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.County = strings.TrimSpace(a.County)
	a.PostCode = strings.ToUpper(strings.TrimSpace(a.PostCode))
	a.Country = strings.TrimSpace(a.Country)
	return a
}

func (a Address) Payload() bankapi.AddressRequest {
	return bankapi.AddressRequest{
		Street:   a.Street,
		City:     a.City,
		County:   a.County,
		PostCode: a.PostCode,
		Country:  a.Country,
	}
}

// FieldError names the first field of a form that failed validation.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (e *FieldError) Error() string {
	switch e.Tag {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", e.Field)
	case "phone":
		return fmt.Sprintf("%s must be 10 to 15 digits, optionally starting with +", e.Field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", e.Field, e.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field, e.Param)
	default:
		return fmt.Sprintf("%s failed %s check", e.Field, e.Tag)
	}
}

// Validate checks a form against its validate tags and reports the first
// failing field by its JSON name.
func Validate(form interface{}) error {
	v, err := validatorInstance()
	if err != nil {
		return err
	}

	if err := v.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()}
		}
		return errors.Wrap(err, "validate form")
	}

	return nil
}

func validatorInstance() (*validator.Validate, error) {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		}); err != nil {
			validateErr = errors.Wrap(err, "register phone validation")
			return
		}

		validate = v
	})

	return validate, validateErr
}
