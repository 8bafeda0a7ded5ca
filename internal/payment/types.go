package payment

// Invoice statuses as returned by the Crypto Bot API.
const (
	InvoiceStatusActive  = "active"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusExpired = "expired"
)

// Invoice is the subset of the Crypto Bot invoice object the engine
// cares about.
type Invoice struct {
	InvoiceID int64  `json:"invoice_id"`
	Status    string `json:"status"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	PayURL    string `json:"pay_url"`
	Payload   string `json:"payload"`
	CreatedAt string `json:"created_at"`
	PaidAt    string `json:"paid_at"`
}
