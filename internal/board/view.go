package board

import (
	"maps"
	"time"

	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
	"github.com/limguytheboy/CasWebsiteFinal/internal/fulfillment"
	"github.com/limguytheboy/CasWebsiteFinal/internal/service"
)

// OrderView is one card on the board. Status is the effective status,
// which may be an unconfirmed override when Pending is set.
type OrderView struct {
	entity.Order
	Pending     bool           `json:"pending"`
	Allocated   map[string]int `json:"allocated,omitempty"`
	ReadyByFIFO bool           `json:"ready_by_fifo"`
	NeedsReview bool           `json:"needs_review,omitempty"`
}

type View struct {
	Filter      fulfillment.DeliveryFilter `json:"filter"`
	Pickup      []OrderView                `json:"pickup"`
	Delivery    []OrderView                `json:"delivery"`
	Completed   []OrderView                `json:"completed"`
	Prepared    []entity.PreparedStock     `json:"prepared"`
	LastRun     *service.FIFOResult        `json:"last_run,omitempty"`
	RefreshedAt time.Time                  `json:"refreshed_at"`
}

// View renders the cached snapshot for filter.
func (b *Board) View(filter fulfillment.DeliveryFilter) View {
	b.mu.Lock()
	defer b.mu.Unlock()

	v := View{
		Filter:      filter,
		Pickup:      []OrderView{},
		Delivery:    []OrderView{},
		Completed:   []OrderView{},
		Prepared:    append([]entity.PreparedStock(nil), b.snap.Prepared...),
		LastRun:     b.lastRun,
		RefreshedAt: b.refreshed,
	}
	for _, o := range fulfillment.Visible(b.snap.Open, filter) {
		card := b.card(o)
		if card.Status == entity.StatusCompleted {
			v.Completed = append(v.Completed, card)
			continue
		}
		if o.DeliveryMethod == entity.DeliveryDelivery {
			v.Delivery = append(v.Delivery, card)
		} else {
			v.Pickup = append(v.Pickup, card)
		}
	}
	for _, o := range fulfillment.Visible(b.snap.Completed, filter) {
		v.Completed = append(v.Completed, b.card(o))
	}
	return v
}

func (b *Board) card(o entity.Order) OrderView {
	card := OrderView{Order: o}
	if st, ok := b.overrides[o.ID]; ok {
		card.Status = st
		card.Pending = true
	}
	if alloc := b.alloc[o.ID]; len(alloc) > 0 {
		card.Allocated = maps.Clone(alloc)
	}
	if !o.Status.Terminal() {
		card.ReadyByFIFO = fulfillment.Satisfied(o, b.alloc)
		card.NeedsReview = len(o.Items) == 0
	}
	return card
}

// Pending reports whether any status write is still unconfirmed.
func (b *Board) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.overrides) > 0
}
