package services

import (
	"errors"
	"log"
	"strings"

	"shop-backend/internal/domain"
	"shop-backend/internal/mail"
	"shop-backend/internal/repository"
)

type NotifierInterface interface {
	NotifyPaid(order *domain.Order)
}

// Notifier sends the paid-order mails to the shop owner and the customer.
// Each recipient is attempted at most once per order: a sent flag on the
// Order guards re-delivery, a per-recipient error field records failures.
// Failures never propagate to the payment flow.
type Notifier struct {
	repo    repository.OrderRepository
	sender  mail.Sender
	adminTo string
}

var _ NotifierInterface = (*Notifier)(nil)

func NewNotifier(repo repository.OrderRepository, sender mail.Sender, adminTo string) *Notifier {
	return &Notifier{repo: repo, sender: sender, adminTo: adminTo}
}

func (n *Notifier) NotifyPaid(order *domain.Order) {
	attempted := false

	if !order.AdminMailSent {
		attempted = true
		if err := n.sendAdmin(order); err != nil {
			order.AdminMailError = err.Error()
			log.Printf("admin mail for order %s failed: %v", order.Payment.OrderID, err)
		} else {
			order.AdminMailSent = true
			order.AdminMailError = ""
		}
	}

	if email := strings.TrimSpace(order.CustomerDetails.Email); email != "" && !order.CustomerMailSent {
		attempted = true
		if err := n.sendCustomer(order); err != nil {
			order.CustomerMailError = err.Error()
			log.Printf("customer mail for order %s failed: %v", order.Payment.OrderID, err)
		} else {
			order.CustomerMailSent = true
			order.CustomerMailError = ""
		}
	}

	if attempted {
		if err := n.repo.Save(order); err != nil {
			log.Printf("persisting mail state for order %s failed: %v", order.Payment.OrderID, err)
		}
	}
}

func (n *Notifier) sendAdmin(order *domain.Order) error {
	if n.adminTo == "" {
		return errors.New("admin email not configured")
	}
	if n.sender == nil {
		return errors.New("SMTP not configured")
	}
	msg, err := mail.AdminOrderEmail(order)
	if err != nil {
		return err
	}
	msg.To = n.adminTo
	return n.sender.Send(msg)
}

func (n *Notifier) sendCustomer(order *domain.Order) error {
	if n.sender == nil {
		return errors.New("SMTP not configured")
	}
	msg, err := mail.CustomerOrderEmail(order)
	if err != nil {
		return err
	}
	return n.sender.Send(msg)
}
