package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CreateOrderRequest is the checkout intake payload. Item names and prices
// are part of the contract and validated, but the stored totals always come
// from the catalog, never from these values.
type CreateOrderRequest struct {
	Customer        CustomerInput    `json:"customer"`
	ShippingAddress AddressInput     `json:"shippingAddress"`
	Items           []OrderItemInput `json:"items" validate:"min=1,dive"`
	Notes           string           `json:"notes" validate:"max=500"`
	IsGift          bool             `json:"isGift"`
	GiftOptionID    string           `json:"giftOptionId" validate:"required_if=IsGift true"`
	GiftOptionName  string           `json:"giftOptionName" validate:"max=100"`
	GiftOptionPrice float64          `json:"giftOptionPrice" validate:"omitempty,gte=0"`
	GiftCustomText  string           `json:"giftCustomText" validate:"max=200"`
}

type CustomerInput struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,min=10,max=15"`
}

type AddressInput struct {
	Line1      string `json:"line1" validate:"required,min=5"`
	Line2      string `json:"line2" validate:"max=200"`
	City       string `json:"city" validate:"required,min=2"`
	State      string `json:"state" validate:"required,min=2"`
	PostalCode string `json:"postalCode" validate:"required,min=5,max=10"`
	Country    string `json:"country" validate:"required,min=2"`
}

type OrderItemInput struct {
	ProductID string  `json:"id" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Price     float64 `json:"price" validate:"required,gt=0"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	Image     string  `json:"image" validate:"max=500"`
}

func (r *CreateOrderRequest) Validate() error {
	return validateStruct(r)
}

// VerifyPaymentRequest carries the gateway callback fields the client posts
// after completing payment.
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpayOrderId" validate:"required"`
	RazorpayPaymentID string `json:"razorpayPaymentId" validate:"required"`
	RazorpaySignature string `json:"razorpaySignature" validate:"required"`
}

func (r *VerifyPaymentRequest) Validate() error {
	return validateStruct(r)
}

// UpdateStatusRequest moves an order along the delivery sequence.
type UpdateStatusRequest struct {
	OrderID        string `json:"orderId" validate:"required,uuid"`
	Status         string `json:"status" validate:"required"`
	TrackingID     string `json:"trackingId" validate:"max=100"`
	TrackingNumber string `json:"trackingNumber" validate:"max=500"`
}

func (r *UpdateStatusRequest) Validate() error {
	return validateStruct(r)
}

var validate = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

func validateStruct(value any) error {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make([]FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, FieldError{Path: fieldPath(fe), Message: fieldMessage(fe)})
	}
	return &ValidationError{Fields: fields}
}

// fieldPath strips the root struct name so clients see paths like
// "customer.email" instead of "CreateOrderRequest.customer.email".
func fieldPath(fe validator.FieldError) string {
	path := fe.Namespace()
	if i := strings.Index(path, "."); i >= 0 {
		path = path[i+1:]
	}
	return path
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid order id"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s entry", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be %s or greater", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
