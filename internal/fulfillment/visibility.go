package fulfillment

import (
	"fmt"

	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
)

// DeliveryFilter narrows the staff board to one delivery method.
type DeliveryFilter string

const (
	FilterAll      DeliveryFilter = "all"
	FilterPickup   DeliveryFilter = "pickup"
	FilterDelivery DeliveryFilter = "delivery"
)

// ParseDeliveryFilter accepts "", "all", "pickup" and "delivery".
func ParseDeliveryFilter(s string) (DeliveryFilter, error) {
	switch f := DeliveryFilter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPickup, FilterDelivery:
		return f, nil
	default:
		return "", fmt.Errorf("unknown delivery filter %q", s)
	}
}

func (f DeliveryFilter) match(m entity.DeliveryMethod) bool {
	switch f {
	case FilterPickup:
		return m == entity.DeliveryPickup
	case FilterDelivery:
		return m == entity.DeliveryDelivery
	default:
		return true
	}
}

// Visible keeps the orders staff may act on under filter.
func Visible(orders []entity.Order, filter DeliveryFilter) []entity.Order {
	out := make([]entity.Order, 0, len(orders))
	for _, o := range orders {
		if !o.VisibleToStaff() || !filter.match(o.DeliveryMethod) {
			continue
		}
		out = append(out, o)
	}
	return out
}
