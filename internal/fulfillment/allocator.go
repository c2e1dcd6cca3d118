// Package fulfillment holds the pure FIFO allocation over a snapshot of
// open orders and the prepared-stock pool. Nothing here performs I/O.
package fulfillment

import (
	"slices"

	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
)

// Allocation maps order id → product id → allocated units.
type Allocation map[string]map[string]int

// For returns the units allocated to orderID for productID.
func (a Allocation) For(orderID, productID string) int {
	return a[orderID][productID]
}

// Totals sums the allocation per product across all orders.
func (a Allocation) Totals() map[string]int {
	totals := make(map[string]int)
	for _, byProduct := range a {
		for productID, qty := range byProduct {
			totals[productID] += qty
		}
	}
	return totals
}

// Allocate distributes prepared stock to orders oldest first. Orders
// created at the same instant keep their input order. Neither argument
// is modified.
func Allocate(orders []entity.Order, prepared map[string]int) Allocation {
	sorted := slices.Clone(orders)
	slices.SortStableFunc(sorted, func(a, b entity.Order) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	remaining := make(map[string]int, len(prepared))
	for productID, qty := range prepared {
		remaining[productID] = qty
	}

	alloc := make(Allocation)
	for _, order := range sorted {
		for _, item := range order.Items {
			need := item.Quantity
			available := remaining[item.ProductID]
			if available <= 0 || need <= 0 {
				continue
			}

			give := min(need, available)
			byProduct, ok := alloc[order.ID]
			if !ok {
				byProduct = make(map[string]int)
				alloc[order.ID] = byProduct
			}
			byProduct[item.ProductID] += give
			remaining[item.ProductID] -= give
		}
	}
	return alloc
}

// Satisfied reports whether every line item of order is fully covered.
// An order without items is satisfied.
func Satisfied(order entity.Order, alloc Allocation) bool {
	for _, item := range order.Items {
		if alloc.For(order.ID, item.ProductID) < item.Quantity {
			return false
		}
	}
	return true
}

// Prepared turns pool rows into allocator input, skipping empty rows.
func Prepared(stock []entity.PreparedStock) map[string]int {
	prepared := make(map[string]int, len(stock))
	for _, s := range stock {
		if s.Qty <= 0 {
			continue
		}
		prepared[s.ProductID] += s.Qty
	}
	return prepared
}

// Working drops orders in a terminal state.
func Working(orders []entity.Order) []entity.Order {
	out := make([]entity.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status.Terminal() {
			continue
		}
		out = append(out, o)
	}
	return out
}
