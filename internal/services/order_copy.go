package services

import (
	"fmt"

	domain "github.com/baovptse192440/NongSanProject-sub002/internal/domain"
)

type orderCopy struct {
	Title   string
	Message string
}

func customerStatusCopy(orderNumber string, status domain.OrderStatus) orderCopy {
	switch status {
	case domain.OrderStatusConfirmed:
		return orderCopy{
			Title:   "Order confirmed",
			Message: fmt.Sprintf("Your order %s has been confirmed and will be prepared shortly.", orderNumber),
		}
	case domain.OrderStatusProcessing:
		return orderCopy{
			Title:   "Order in preparation",
			Message: fmt.Sprintf("Your order %s is being packed.", orderNumber),
		}
	case domain.OrderStatusShipped:
		return orderCopy{
			Title:   "Order shipped",
			Message: fmt.Sprintf("Your order %s is on its way.", orderNumber),
		}
	case domain.OrderStatusDelivered:
		return orderCopy{
			Title:   "Order delivered",
			Message: fmt.Sprintf("Your order %s has been delivered. Thank you for shopping with us.", orderNumber),
		}
	case domain.OrderStatusCancelled:
		return orderCopy{
			Title:   "Order cancelled",
			Message: fmt.Sprintf("Your order %s has been cancelled. Contact us if this is unexpected.", orderNumber),
		}
	default:
		return orderCopy{
			Title:   "Order updated",
			Message: fmt.Sprintf("Your order %s is now %s.", orderNumber, status),
		}
	}
}

func adminNewOrderCopy(orderNumber, customerName, total string) orderCopy {
	return orderCopy{
		Title:   "New order",
		Message: fmt.Sprintf("Order %s was placed by %s for %s.", orderNumber, customerName, total),
	}
}
