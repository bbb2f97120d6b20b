package domain

const NoItemsLabel = "No items"

type ItemView struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	ItemType    string `json:"item_type"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

// View is a document with its amounts formatted in the document's currency.
type View struct {
	Document   Document   `json:"document"`
	Items      []ItemView `json:"items"`
	EmptyLabel string     `json:"empty_label,omitempty"`
	Subtotal   string     `json:"subtotal"`
	Tax        string     `json:"tax"`
	TaxLabel   string     `json:"tax_label"`
	Total      string     `json:"total"`
	AmountPaid string     `json:"amount_paid,omitempty"`
	Balance    string     `json:"balance,omitempty"`
	// SnapshotFallback is set when the stored snapshot could not be read and
	// Items reflect the ticket's live line items instead.
	SnapshotFallback bool `json:"snapshot_fallback"`
}
