package orders

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusCreated    Status = "created"
	StatusDispatched Status = "dispatched"
)

// Order is a shipment order created by a tenant. Creating one is a paid
// feature charged through the credit gate.
type Order struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TenantID      uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Reference     string    `db:"reference" json:"reference"`
	RecipientName string    `db:"recipient_name" json:"recipient_name"`
	Address       string    `db:"address" json:"address"`
	CODAmount     int64     `db:"cod_amount" json:"cod_amount"`
	Status        Status    `db:"status" json:"status"`
	CreatedBy     uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
