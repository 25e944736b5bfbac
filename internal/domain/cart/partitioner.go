package cart

import "github.com/google/uuid"

// SellerGroup is the portion of a cart belonging to one seller.
type SellerGroup struct {
	SellerID uuid.UUID
	Lines    []CartLine
}

// Partition groups cart lines by owning seller. Output order follows the
// first occurrence of each seller in the input, so the same cart always
// produces the same sub-order sequence.
func Partition(lines []CartLine, sellerOf func(productID uuid.UUID) uuid.UUID) []SellerGroup {
	groups := make([]SellerGroup, 0)
	index := make(map[uuid.UUID]int)

	for _, line := range lines {
		sellerID := sellerOf(line.ProductID)
		idx, seen := index[sellerID]
		if !seen {
			idx = len(groups)
			index[sellerID] = idx
			groups = append(groups, SellerGroup{SellerID: sellerID})
		}
		groups[idx].Lines = append(groups[idx].Lines, line)
	}

	return groups
}
