package model

import (
	"fmt"
	"strconv"
	"time"
)

// Order status values seen in the dataset. The domain is open: unknown
// statuses pass through untouched.
const (
	StatusCreated    = "created"
	StatusApproved   = "approved"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCanceled   = "canceled"
)

// PreDeliveryStatus reports whether an order with this status has not been
// delivered yet, i.e. it can still be canceled.
func PreDeliveryStatus(status string) bool {
	switch status {
	case StatusCreated, StatusApproved, StatusProcessing, StatusShipped:
		return true
	}
	return false
}

// OrderFacts is the resolved canonical order record for a turn. It is
// immutable once resolved: policy and composer only read it.
type OrderFacts struct {
	OrderID          string    `json:"order_id"`
	CustomerEmail    string    `json:"customer_email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	OrderStatus      string    `json:"order_status"`
	PurchaseDate     time.Time `json:"purchase_date"`
	DeliveryTimeDays *int      `json:"delivery_time_days,omitempty"`
	TotalPayment     float64   `json:"total_payment"`
	PaymentType      string    `json:"payment_type"`
	Installments     int       `json:"installments"`
	NumItems         int       `json:"num_items"`
	ReviewScore      *int      `json:"review_score,omitempty"`

	// Derived at fetch time by the order store; never recomputed elsewhere.
	IsDelayed bool `json:"is_delayed"`
	LowReview bool `json:"low_review"`
}

// DeliveredDate returns purchase date + delivery days when both are known.
func (f *OrderFacts) DeliveredDate() (time.Time, bool) {
	if f == nil || f.PurchaseDate.IsZero() || f.DeliveryTimeDays == nil {
		return time.Time{}, false
	}
	return f.PurchaseDate.AddDate(0, 0, *f.DeliveryTimeDays), true
}

// Record is one flat retrieval hit as returned by a similarity index.
type Record map[string]any

// Str returns the value of key rendered as a string, or "" when absent.
func (r Record) Str(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// JSON numbers decode as float64; render integral values plainly
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// Int returns the value of key as an int, or 0 when absent or non-numeric.
func (r Record) Int(key string) int {
	switch v := r[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
