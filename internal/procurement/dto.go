package procurement

import (
	"time"

	"github.com/shopspring/decimal"
)

// createPORequest is the JSON payload for creating a draft order.
type createPORequest struct {
	Number       string              `json:"number"`
	VendorID     int64               `json:"vendor_id" validate:"required,gt=0"`
	WarehouseID  int64               `json:"warehouse_id"`
	ExpectedDate time.Time           `json:"expected_date"`
	Notes        string              `json:"notes"`
	Lines        []createLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type createLineRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	VariantID int64           `json:"variant_id"`
	Qty       int64           `json:"qty" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type submitRequest struct {
	ApproverIDs []int64 `json:"approver_ids" validate:"required,min=1,dive,gt=0"`
}

type resolveApprovalRequest struct {
	Decision     string `json:"decision" validate:"required,oneof=APPROVE REJECT"`
	Comment      string `json:"comment"`
	SignatureRef string `json:"signature_ref"`
}

type postGRNRequest struct {
	WarehouseID    int64            `json:"warehouse_id" validate:"required,gt=0"`
	Number         string           `json:"number"`
	ReceivedAt     time.Time        `json:"received_at"`
	Notes          string           `json:"notes"`
	IdempotencyKey string           `json:"-"`
	Lines          []grnLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type grnLineRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	VariantID int64 `json:"variant_id"`
	Qty       int64 `json:"qty" validate:"required,gt=0"`
}

type redeemRequest struct {
	Accepted *bool  `json:"accepted" validate:"required"`
	Notes    string `json:"notes"`
}

// poResponse is the JSON view of an order snapshot.
type poResponse struct {
	ID               int64          `json:"id"`
	Number           string         `json:"number"`
	VendorID         int64          `json:"vendor_id"`
	WarehouseID      int64          `json:"warehouse_id,omitempty"`
	Status           POStatus       `json:"status"`
	TotalValue       string         `json:"total_value"`
	ReceivedValue    string         `json:"received_value"`
	RemainingBalance string         `json:"remaining_balance"`
	ExpectedDate     time.Time      `json:"expected_date"`
	Notes            string         `json:"notes,omitempty"`
	VendorAccepted   *bool          `json:"vendor_accepted,omitempty"`
	VendorNotes      string         `json:"vendor_notes,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	Lines            []lineResponse `json:"lines,omitempty"`
}

type lineResponse struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	VariantID   int64  `json:"variant_id,omitempty"`
	OrderedQty  int64  `json:"ordered_qty"`
	ReceivedQty int64  `json:"received_qty"`
	Remaining   int64  `json:"remaining_qty"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

type approvalResponse struct {
	ApproverID   int64          `json:"approver_id"`
	Status       ApprovalStatus `json:"status"`
	Comment      string         `json:"comment,omitempty"`
	SignatureRef string         `json:"signature_ref,omitempty"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty"`
}

type grnResponse struct {
	ID            int64     `json:"id"`
	Number        string    `json:"number"`
	POID          int64     `json:"po_id"`
	WarehouseID   int64     `json:"warehouse_id"`
	Status        GRNStatus `json:"status"`
	TotalReceived string    `json:"total_received"`
	ReceivedAt    time.Time `json:"received_at"`
	Notes         string    `json:"notes,omitempty"`
}

type dispatchResponse struct {
	PO        poResponse `json:"po"`
	RedeemURL string     `json:"redeem_url"`
	ExpiresAt time.Time  `json:"expires_at"`
}

func toPOResponse(snap POSnapshot) poResponse {
	resp := poResponse{
		ID:               snap.PO.ID,
		Number:           snap.PO.Number,
		VendorID:         snap.PO.VendorID,
		WarehouseID:      snap.PO.WarehouseID,
		Status:           snap.PO.Status,
		TotalValue:       snap.PO.TotalValue.String(),
		ReceivedValue:    snap.PO.ReceivedValue.String(),
		RemainingBalance: snap.PO.RemainingBalance().String(),
		ExpectedDate:     snap.PO.ExpectedDate,
		Notes:            snap.PO.Notes,
		VendorAccepted:   snap.PO.VendorAccepted,
		VendorNotes:      snap.PO.VendorNotes,
		CreatedAt:        snap.PO.CreatedAt,
	}
	for _, l := range snap.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ID:          l.ID,
			ProductID:   l.ProductID,
			VariantID:   l.VariantID,
			OrderedQty:  l.OrderedQty,
			ReceivedQty: l.ReceivedQty,
			Remaining:   l.Remaining(),
			UnitPrice:   l.UnitPrice.String(),
			LineTotal:   l.LineTotal().String(),
		})
	}
	return resp
}

func toGRNResponse(grn GoodsReceipt) grnResponse {
	return grnResponse{
		ID:            grn.ID,
		Number:        grn.Number,
		POID:          grn.POID,
		WarehouseID:   grn.WarehouseID,
		Status:        grn.Status,
		TotalReceived: grn.TotalReceived.String(),
		ReceivedAt:    grn.ReceivedAt,
		Notes:         grn.Notes,
	}
}
