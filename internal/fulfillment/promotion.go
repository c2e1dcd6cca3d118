package fulfillment

import (
	"fmt"

	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
)

// PromotionPolicy decides which satisfied orders the allocator may move to ready.
type PromotionPolicy string

const (
	// PromoteOpen considers every non-terminal order that may legally become ready.
	PromoteOpen PromotionPolicy = "open"
	// PromotePreparing only considers orders staff already started.
	PromotePreparing PromotionPolicy = "preparing"
)

// ParsePromotionPolicy validates a configured policy name.
func ParsePromotionPolicy(s string) (PromotionPolicy, error) {
	switch p := PromotionPolicy(s); p {
	case PromoteOpen, PromotePreparing:
		return p, nil
	case "":
		return PromoteOpen, nil
	default:
		return "", fmt.Errorf("unknown promotion policy %q", s)
	}
}

// Eligible reports whether an order in status st may be promoted.
func (p PromotionPolicy) Eligible(st entity.Status) bool {
	if p == PromotePreparing {
		return st == entity.StatusPreparing
	}
	return entity.CanTransition(st, entity.StatusReady)
}

// Reasons a satisfied order is left where it is.
const (
	ReasonAlreadyReady = "already_ready"
	ReasonNotEligible  = "not_eligible"
)

// Verdict is the allocator's decision for one order.
type Verdict struct {
	OrderID   string        `json:"order_id"`
	Status    entity.Status `json:"status"`
	Satisfied bool          `json:"satisfied"`
	Promote   bool          `json:"promote"`
	Reason    string        `json:"reason,omitempty"`
	NoItems   bool          `json:"no_items,omitempty"`
}

// Decide evaluates orders against alloc in input order.
func Decide(orders []entity.Order, alloc Allocation, policy PromotionPolicy) []Verdict {
	verdicts := make([]Verdict, 0, len(orders))
	for _, o := range orders {
		v := Verdict{
			OrderID:   o.ID,
			Status:    o.Status,
			Satisfied: Satisfied(o, alloc),
			NoItems:   len(o.Items) == 0,
		}
		if v.Satisfied {
			switch {
			case o.Status == entity.StatusReady:
				v.Reason = ReasonAlreadyReady
			case !policy.Eligible(o.Status):
				v.Reason = ReasonNotEligible
			default:
				v.Promote = true
			}
		}
		verdicts = append(verdicts, v)
	}
	return verdicts
}
