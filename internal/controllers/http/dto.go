package http

import "shop-backend/internal/domain"

type CheckoutRequestBody struct {
	CustomerDetails domain.CustomerDetails `json:"customerDetails" binding:"required"`
	Cart            []domain.CartItem      `json:"cart" binding:"required"`
	Source          string                 `json:"source"`
	Section         string                 `json:"section"`
}

type CheckoutResponse struct {
	OK                   bool              `json:"ok"`
	PaymentURL           string            `json:"paymentUrl"`
	OrderID              string            `json:"orderId"`
	Totals               domain.Totals     `json:"totals"`
	RecommendedRedirects map[string]string `json:"recommendedRedirects"`
}

type ConfirmResponse struct {
	OK      bool   `json:"ok"`
	OrderID string `json:"orderId"`
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

type StatusResponse struct {
	OK                bool   `json:"ok"`
	OrderID           string `json:"orderId"`
	Status            string `json:"status"`
	AdminMailSent     bool   `json:"adminMailSent"`
	CustomerMailSent  bool   `json:"customerMailSent"`
	AdminMailError    string `json:"adminMailError"`
	CustomerMailError string `json:"customerMailError"`
}

type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}
