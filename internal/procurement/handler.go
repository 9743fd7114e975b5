package procurement

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/rbac"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Handler manages purchase order lifecycle endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	cache    *SnapshotCache
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, cache *SnapshotCache, rbacMW rbac.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		cache:    cache,
		validate: validator.New(),
		rbac:     rbacMW,
	}
}

// MountRoutes registers the capability-gated internal API.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.CapPOView))
		r.Get("/pos", h.listPOs)
		r.Get("/pos/{id}", h.getPO)
		r.Get("/pos/{id}/approvals", h.listApprovals)
		r.Get("/pos/{id}/grns", h.listGRNs)
		r.Get("/pos/{id}/ledger", h.ledgerSummary)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.CapPOEdit))
		r.Post("/pos", h.createPO)
		r.Post("/pos/{id}/submit", h.submitPO)
		r.Delete("/pos/{id}", h.cancelPO)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.CapPOApprove))
		r.Post("/pos/{id}/approvals/{approverID}", h.resolveApproval)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.CapPODispatch))
		r.Post("/pos/{id}/dispatch", h.dispatchPO)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.CapGRNPost))
		r.Post("/pos/{id}/grns", h.postGRN)
	})
}

// MountVendorRoutes registers the public token-only redemption endpoint.
func (h *Handler) MountVendorRoutes(r chi.Router) {
	r.Post("/acceptance/{token}", h.redeemToken)
}

func (h *Handler) createPO(w http.ResponseWriter, r *http.Request) {
	var req createPORequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreatePOInput{
		Number:       req.Number,
		VendorID:     req.VendorID,
		WarehouseID:  req.WarehouseID,
		ExpectedDate: req.ExpectedDate,
		Notes:        req.Notes,
	}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, CreateLineInput{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Qty:       l.Qty,
			UnitPrice: l.UnitPrice,
		})
	}
	snap, err := h.service.CreatePO(r.Context(), input)
	if err != nil {
		h.respondError(w, "create PO", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPOResponse(snap))
}

func (h *Handler) listPOs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	vendorID, _ := strconv.ParseInt(r.URL.Query().Get("vendor_id"), 10, 64)
	filters := ListFilters{
		Status:   r.URL.Query().Get("status"),
		VendorID: vendorID,
		Search:   r.URL.Query().Get("search"),
		SortBy:   r.URL.Query().Get("sort"),
		SortDir:  r.URL.Query().Get("dir"),
	}
	items, total, err := h.service.ListPOs(r.Context(), limit, offset, filters)
	if err != nil {
		h.respondError(w, "list POs", err)
		return
	}
	responses := make([]poResponse, 0, len(items))
	for _, po := range items {
		responses = append(responses, toPOResponse(POSnapshot{PO: po}))
	}
	meta := shared.NewPagination(offset/limit+1, limit, total)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items": responses,
		"pagination": map[string]any{
			"page":        meta.Page,
			"per_page":    meta.PerPage,
			"total":       meta.Total,
			"total_pages": meta.TotalPages,
		},
	})
}

func (h *Handler) getPO(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	snap, err := h.cache.Get(r.Context(), id, func(ctx context.Context) (POSnapshot, error) {
		return h.service.GetPO(ctx, id)
	})
	if err != nil {
		h.respondError(w, "get PO", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(snap))
}

func (h *Handler) submitPO(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	snap, err := h.service.SubmitForApproval(r.Context(), id, req.ApproverIDs)
	if err != nil {
		h.respondError(w, "submit PO", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(snap))
}

func (h *Handler) resolveApproval(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	approverID, err := pathID(r, "approverID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Approver ID", err.Error())
		return
	}
	var req resolveApprovalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	snap, err := h.service.ResolveApproval(r.Context(), id, approverID, ResolveApprovalInput{
		Decision:     Decision(req.Decision),
		Comment:      req.Comment,
		SignatureRef: req.SignatureRef,
	})
	if err != nil {
		h.respondError(w, "resolve approval", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(snap))
}

func (h *Handler) listApprovals(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	approvals, err := h.service.ListApprovals(r.Context(), id)
	if err != nil {
		h.respondError(w, "list approvals", err)
		return
	}
	responses := make([]approvalResponse, 0, len(approvals))
	for _, a := range approvals {
		responses = append(responses, approvalResponse{
			ApproverID:   a.ApproverID,
			Status:       a.Status,
			Comment:      a.Comment,
			SignatureRef: a.SignatureRef,
			ResolvedAt:   a.ResolvedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": responses})
}

func (h *Handler) dispatchPO(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	result, err := h.service.DispatchToVendor(r.Context(), id)
	if err != nil {
		h.respondError(w, "dispatch PO", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dispatchResponse{
		PO:        toPOResponse(result.Snapshot),
		RedeemURL: result.RedeemURL,
		ExpiresAt: result.ExpiresAt,
	})
}

func (h *Handler) postGRN(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var req postGRNRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := PostGRNInput{
		WarehouseID:    req.WarehouseID,
		Number:         req.Number,
		ReceivedAt:     req.ReceivedAt,
		Notes:          req.Notes,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, ReceiptLine{ProductID: l.ProductID, VariantID: l.VariantID, Qty: l.Qty})
	}
	grn, snap, err := h.service.PostGRN(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "post GRN", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"grn": toGRNResponse(grn),
		"po":  toPOResponse(snap),
	})
}

func (h *Handler) listGRNs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	grns, err := h.service.ListGRNs(r.Context(), id)
	if err != nil {
		h.respondError(w, "list GRNs", err)
		return
	}
	responses := make([]grnResponse, 0, len(grns))
	for _, g := range grns {
		responses = append(responses, toGRNResponse(g))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": responses})
}

func (h *Handler) ledgerSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	summary, err := h.service.GetLedgerSummary(r.Context(), id)
	if err != nil {
		h.respondError(w, "ledger summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) cancelPO(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	snap, err := h.service.CancelPO(r.Context(), id)
	if err != nil {
		h.respondError(w, "cancel PO", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(snap))
}

func (h *Handler) redeemToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req redeemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	snap, err := h.service.RedeemVendorToken(r.Context(), token, *req.Accepted, req.Notes)
	if err != nil {
		h.respondError(w, "redeem vendor token", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"number":          snap.PO.Number,
		"status":          snap.PO.Status,
		"vendor_accepted": snap.PO.VendorAccepted,
	})
}

// respondError maps engine sentinels to RFC7807 problem responses.
func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotAuthorized):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrAlreadyResolved),
		errors.Is(err, ErrOverReceipt), errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrTokenInvalid):
		httpx.Problem(w, http.StatusGone, "Token Invalid", "this acceptance link is no longer valid")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
