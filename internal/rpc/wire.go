package rpc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

// Remote procedure names.
const (
	FnCreateSession  = "inventory_create_session_v2"
	FnJoinSession    = "inventory_join_session"
	FnAddItems       = "inventory_add_session_items_v2"
	FnGetItems       = "inventory_get_session_items_v2"
	FnCompare        = "inventory_compare_sessions_v2"
	FnMerge          = "inventory_merge_sessions_v2"
	FnSubmit         = "inventory_submit_session_v3"
	FnListSessions   = "inventory_get_session_list_v2"
	FnGetSession     = "inventory_get_session_v2"
	FnSearchProducts = "inventory_search_products"
	FnMergeHistory   = "inventory_get_merge_history"
	FnSessionHistory = "inventory_get_session_history"
	FnShipment       = "inventory_get_shipment_detail"
)

// envelope wraps every response body.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// Request parameters.

type createSessionParams struct {
	CompanyID   string  `json:"p_company_id" binding:"required"`
	StoreID     string  `json:"p_store_id" binding:"required"`
	UserID      string  `json:"p_user_id" binding:"required"`
	SessionType string  `json:"p_session_type" binding:"required"`
	ShipmentID  *string `json:"p_shipment_id,omitempty"`
	SessionName *string `json:"p_session_name,omitempty"`
}

type sessionUserParams struct {
	SessionID string `json:"p_session_id" binding:"required"`
	UserID    string `json:"p_user_id" binding:"required"`
}

type sessionParams struct {
	SessionID string `json:"p_session_id" binding:"required"`
}

type addItemsParams struct {
	SessionID string    `json:"p_session_id" binding:"required"`
	UserID    string    `json:"p_user_id" binding:"required"`
	Items     []itemDTO `json:"p_items"`
}

type submitParams struct {
	SessionID string    `json:"p_session_id" binding:"required"`
	UserID    string    `json:"p_user_id" binding:"required"`
	Items     []itemDTO `json:"p_items"`
	IsFinal   bool      `json:"p_is_final"`
}

type compareParams struct {
	SessionIDA string `json:"p_session_id_a" binding:"required"`
	SessionIDB string `json:"p_session_id_b" binding:"required"`
	UserID     string `json:"p_user_id" binding:"required"`
}

type mergeParams struct {
	TargetSessionID string `json:"p_target_session_id" binding:"required"`
	SourceSessionID string `json:"p_source_session_id" binding:"required"`
	UserID          string `json:"p_user_id" binding:"required"`
}

type listSessionsParams struct {
	CompanyID   string  `json:"p_company_id,omitempty"`
	StoreID     string  `json:"p_store_id,omitempty"`
	SessionType string  `json:"p_session_type,omitempty"`
	ShipmentID  *string `json:"p_shipment_id,omitempty"`
	IsActive    *bool   `json:"p_is_active,omitempty"`
}

type shipmentParams struct {
	ShipmentID string `json:"p_shipment_id" binding:"required"`
}

type searchParams struct {
	StoreID string `json:"p_store_id" binding:"required"`
	Search  string `json:"p_search"`
	Limit   int    `json:"p_limit"`
}

type itemDTO struct {
	ProductID        string  `json:"product_id"`
	VariantID        *string `json:"variant_id"`
	Quantity         int     `json:"quantity"`
	QuantityRejected int     `json:"quantity_rejected"`
}

func itemsToDTO(items []domain.ItemInput) []itemDTO {
	out := make([]itemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, itemDTO{
			ProductID:        it.ProductID,
			VariantID:        it.Key().VariantPtr(),
			Quantity:         it.Quantity,
			QuantityRejected: it.QuantityRejected,
		})
	}
	return out
}

func itemsFromDTO(items []itemDTO) []domain.ItemInput {
	out := make([]domain.ItemInput, 0, len(items))
	for _, it := range items {
		key := domain.KeyOf(it.ProductID, it.VariantID)
		out = append(out, domain.ItemInput{
			ProductID:        key.ProductID,
			VariantID:        key.VariantID,
			Quantity:         it.Quantity,
			QuantityRejected: it.QuantityRejected,
		})
	}
	return out
}

// Response payloads. Required fields are pointers so a missing field can
// be told apart from a zero value.

type sessionDTO struct {
	SessionID   *string    `json:"session_id"`
	SessionName *string    `json:"session_name"`
	SessionType *string    `json:"session_type"`
	CompanyID   *string    `json:"company_id"`
	StoreID     *string    `json:"store_id"`
	ShipmentID  *string    `json:"shipment_id"`
	IsActive    *bool      `json:"is_active"`
	IsFinal     *bool      `json:"is_final"`
	CreatedBy   *string    `json:"created_by"`
	CreatedAt   *time.Time `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
	MemberCount *int       `json:"member_count"`
}

func sessionToDTO(s *domain.Session) sessionDTO {
	return sessionDTO{
		SessionID:   ptr(s.ID),
		SessionName: ptr(s.Name),
		SessionType: ptr(string(s.Type)),
		CompanyID:   ptr(s.CompanyID),
		StoreID:     ptr(s.StoreID),
		ShipmentID:  s.ShipmentID,
		IsActive:    ptr(s.IsActive),
		IsFinal:     ptr(s.IsFinal),
		CreatedBy:   ptr(s.CreatedBy),
		CreatedAt:   ptr(s.CreatedAt),
		CompletedAt: s.CompletedAt,
		MemberCount: ptr(s.MemberCount),
	}
}

func (d sessionDTO) decode(f *fields, at string) *domain.Session {
	s := &domain.Session{
		ID:          f.str(at+"session_id", d.SessionID),
		Name:        optional(d.SessionName),
		Type:        domain.SessionType(f.str(at+"session_type", d.SessionType)),
		CompanyID:   optional(d.CompanyID),
		StoreID:     f.str(at+"store_id", d.StoreID),
		ShipmentID:  d.ShipmentID,
		IsActive:    f.flag(at+"is_active", d.IsActive),
		IsFinal:     f.flag(at+"is_final", d.IsFinal),
		CreatedBy:   f.str(at+"created_by", d.CreatedBy),
		CompletedAt: d.CompletedAt,
		MemberCount: optional(d.MemberCount),
	}
	if d.CreatedAt == nil {
		f.missing(at + "created_at")
	} else {
		s.CreatedAt = *d.CreatedAt
	}
	return s
}

type joinDTO struct {
	MemberID      *string `json:"member_id"`
	SessionID     *string `json:"session_id"`
	CreatedBy     *string `json:"created_by"`
	AlreadyJoined *bool   `json:"already_joined"`
}

func (d joinDTO) decode(f *fields) *app.JoinResult {
	return &app.JoinResult{
		MemberID:      f.str("member_id", d.MemberID),
		SessionID:     f.str("session_id", d.SessionID),
		CreatedBy:     f.str("created_by", d.CreatedBy),
		AlreadyJoined: optional(d.AlreadyJoined),
	}
}

type scannedByDTO struct {
	UserID           *string `json:"user_id"`
	UserName         *string `json:"user_name"`
	Quantity         *int    `json:"quantity"`
	QuantityRejected *int    `json:"quantity_rejected"`
}

type sessionItemDTO struct {
	ProductID     *string        `json:"product_id"`
	VariantID     *string        `json:"variant_id"`
	ProductName   *string        `json:"product_name"`
	VariantName   *string        `json:"variant_name"`
	SKU           *string        `json:"sku"`
	TotalQuantity *int           `json:"total_quantity"`
	TotalRejected *int           `json:"total_rejected"`
	ScannedBy     []scannedByDTO `json:"scanned_by"`
}

type participantDTO struct {
	UserID       *string `json:"user_id"`
	UserName     *string `json:"user_name"`
	ProductCount *int    `json:"product_count"`
	TotalScanned *int    `json:"total_scanned"`
}

type summaryDTO struct {
	TotalProducts     *int `json:"total_products"`
	TotalQuantity     *int `json:"total_quantity"`
	TotalRejected     *int `json:"total_rejected"`
	TotalParticipants *int `json:"total_participants"`
}

type itemsDTO struct {
	SessionID    *string           `json:"session_id"`
	Items        *[]sessionItemDTO `json:"items"`
	Participants []participantDTO  `json:"participants"`
	Summary      *summaryDTO       `json:"summary"`
}

func itemsResultToDTO(r *app.ItemsResult) itemsDTO {
	items := make([]sessionItemDTO, 0, len(r.Items))
	for _, it := range r.Items {
		scanned := make([]scannedByDTO, 0, len(it.Contributions))
		for _, c := range it.Contributions {
			scanned = append(scanned, scannedByDTO{
				UserID:           ptr(c.UserID),
				UserName:         ptr(c.UserName),
				Quantity:         ptr(c.Quantity),
				QuantityRejected: ptr(c.QuantityRejected),
			})
		}
		items = append(items, sessionItemDTO{
			ProductID:     ptr(it.Key.ProductID),
			VariantID:     it.Key.VariantPtr(),
			ProductName:   ptr(it.ProductName),
			VariantName:   ptr(it.VariantName),
			SKU:           ptr(it.SKU),
			TotalQuantity: ptr(it.TotalQuantity),
			TotalRejected: ptr(it.TotalRejected),
			ScannedBy:     scanned,
		})
	}
	participants := make([]participantDTO, 0, len(r.Participants))
	for _, p := range r.Participants {
		participants = append(participants, participantDTO{
			UserID:       ptr(p.UserID),
			UserName:     ptr(p.UserName),
			ProductCount: ptr(p.ProductCount),
			TotalScanned: ptr(p.TotalScanned),
		})
	}
	return itemsDTO{
		SessionID:    ptr(r.SessionID),
		Items:        &items,
		Participants: participants,
		Summary: &summaryDTO{
			TotalProducts:     ptr(r.Summary.TotalProducts),
			TotalQuantity:     ptr(r.Summary.TotalQuantity),
			TotalRejected:     ptr(r.Summary.TotalRejected),
			TotalParticipants: ptr(r.Summary.TotalParticipants),
		},
	}
}

func (d itemsDTO) decode(f *fields) *app.ItemsResult {
	res := &app.ItemsResult{SessionID: f.str("session_id", d.SessionID)}
	if d.Items == nil {
		f.missing("items")
	} else {
		for i, it := range *d.Items {
			at := fmt.Sprintf("items[%d].", i)
			item := domain.SessionItem{
				Key:           domain.KeyOf(f.str(at+"product_id", it.ProductID), it.VariantID),
				ProductName:   f.str(at+"product_name", it.ProductName),
				VariantName:   optional(it.VariantName),
				SKU:           optional(it.SKU),
				TotalQuantity: f.num(at+"total_quantity", it.TotalQuantity),
				TotalRejected: f.num(at+"total_rejected", it.TotalRejected),
			}
			if it.ScannedBy == nil {
				f.missing(at + "scanned_by")
			}
			for j, c := range it.ScannedBy {
				cat := fmt.Sprintf("%sscanned_by[%d].", at, j)
				item.Contributions = append(item.Contributions, domain.ContributionEntry{
					UserID:           f.str(cat+"user_id", c.UserID),
					UserName:         optional(c.UserName),
					Quantity:         f.num(cat+"quantity", c.Quantity),
					QuantityRejected: f.num(cat+"quantity_rejected", c.QuantityRejected),
				})
			}
			res.Items = append(res.Items, item)
		}
	}
	for i, p := range d.Participants {
		at := fmt.Sprintf("participants[%d].", i)
		res.Participants = append(res.Participants, domain.Participant{
			UserID:       f.str(at+"user_id", p.UserID),
			UserName:     optional(p.UserName),
			ProductCount: f.num(at+"product_count", p.ProductCount),
			TotalScanned: f.num(at+"total_scanned", p.TotalScanned),
		})
	}
	if d.Summary == nil {
		f.missing("summary")
	} else {
		res.Summary = domain.Totals{
			TotalProducts:     f.num("summary.total_products", d.Summary.TotalProducts),
			TotalQuantity:     f.num("summary.total_quantity", d.Summary.TotalQuantity),
			TotalRejected:     f.num("summary.total_rejected", d.Summary.TotalRejected),
			TotalParticipants: optional(d.Summary.TotalParticipants),
		}
	}
	return res
}

type compareSessionDTO struct {
	SessionID     *string `json:"session_id"`
	SessionName   *string `json:"session_name"`
	StoreID       *string `json:"store_id"`
	TotalProducts *int    `json:"total_products"`
	TotalQuantity *int    `json:"total_quantity"`
}

type matchedDTO struct {
	ProductID    *string `json:"product_id"`
	VariantID    *string `json:"variant_id"`
	ProductName  *string `json:"product_name"`
	SKU          *string `json:"sku"`
	QuantityA    *int    `json:"quantity_a"`
	QuantityB    *int    `json:"quantity_b"`
	QuantityDiff *int    `json:"quantity_diff"`
	IsMatch      *bool   `json:"is_match"`
}

type onlyDTO struct {
	ProductID   *string `json:"product_id"`
	VariantID   *string `json:"variant_id"`
	ProductName *string `json:"product_name"`
	SKU         *string `json:"sku"`
	Quantity    *int    `json:"quantity"`
}

type compareSummaryDTO struct {
	TotalMatched      *int `json:"total_matched"`
	QuantitySameCount *int `json:"quantity_same_count"`
	QuantityDiffCount *int `json:"quantity_diff_count"`
	OnlyInACount      *int `json:"only_in_a_count"`
	OnlyInBCount      *int `json:"only_in_b_count"`
}

type bucketsDTO struct {
	Matched []matchedDTO `json:"matched"`
	OnlyInA []onlyDTO    `json:"only_in_a"`
	OnlyInB []onlyDTO    `json:"only_in_b"`
}

type compareDTO struct {
	SessionA   *compareSessionDTO `json:"session_a"`
	SessionB   *compareSessionDTO `json:"session_b"`
	Comparison *bucketsDTO        `json:"comparison"`
	Summary    *compareSummaryDTO `json:"summary"`
}

func comparisonToDTO(r *domain.ComparisonResult) compareDTO {
	ref := func(s domain.SessionRef) *compareSessionDTO {
		return &compareSessionDTO{
			SessionID:     ptr(s.SessionID),
			SessionName:   ptr(s.SessionName),
			StoreID:       ptr(s.StoreID),
			TotalProducts: ptr(s.TotalItems),
			TotalQuantity: ptr(s.TotalQty),
		}
	}
	only := func(items []domain.OnlyItem) []onlyDTO {
		out := make([]onlyDTO, 0, len(items))
		for _, it := range items {
			out = append(out, onlyDTO{
				ProductID:   ptr(it.Key.ProductID),
				VariantID:   it.Key.VariantPtr(),
				ProductName: ptr(it.ProductName),
				SKU:         ptr(it.SKU),
				Quantity:    ptr(it.Quantity),
			})
		}
		return out
	}
	d := compareDTO{
		SessionA: ref(r.SessionA),
		SessionB: ref(r.SessionB),
		Summary: &compareSummaryDTO{
			TotalMatched:      ptr(r.Summary.TotalMatched),
			QuantitySameCount: ptr(r.Summary.QuantitySameCount),
			QuantityDiffCount: ptr(r.Summary.QuantityDiffCount),
			OnlyInACount:      ptr(r.Summary.OnlyInACount),
			OnlyInBCount:      ptr(r.Summary.OnlyInBCount),
		},
	}
	d.Comparison = &bucketsDTO{
		Matched: make([]matchedDTO, 0, len(r.Matched)),
		OnlyInA: only(r.OnlyInA),
		OnlyInB: only(r.OnlyInB),
	}
	for _, m := range r.Matched {
		d.Comparison.Matched = append(d.Comparison.Matched, matchedDTO{
			ProductID:    ptr(m.Key.ProductID),
			VariantID:    m.Key.VariantPtr(),
			ProductName:  ptr(m.ProductName),
			SKU:          ptr(m.SKU),
			QuantityA:    ptr(m.QuantityA),
			QuantityB:    ptr(m.QuantityB),
			QuantityDiff: ptr(m.QuantityDiff),
			IsMatch:      ptr(m.IsMatch),
		})
	}
	return d
}

func (d compareDTO) decode(f *fields) *domain.ComparisonResult {
	res := &domain.ComparisonResult{}
	ref := func(at string, s *compareSessionDTO) domain.SessionRef {
		if s == nil {
			f.missing(at)
			return domain.SessionRef{}
		}
		return domain.SessionRef{
			SessionID:   f.str(at+".session_id", s.SessionID),
			SessionName: optional(s.SessionName),
			StoreID:     optional(s.StoreID),
			TotalItems:  optional(s.TotalProducts),
			TotalQty:    optional(s.TotalQuantity),
		}
	}
	only := func(at string, items []onlyDTO) []domain.OnlyItem {
		var out []domain.OnlyItem
		for i, it := range items {
			p := fmt.Sprintf("%s[%d].", at, i)
			out = append(out, domain.OnlyItem{
				Key:         domain.KeyOf(f.str(p+"product_id", it.ProductID), it.VariantID),
				ProductName: optional(it.ProductName),
				SKU:         optional(it.SKU),
				Quantity:    f.num(p+"quantity", it.Quantity),
			})
		}
		return out
	}
	res.SessionA = ref("session_a", d.SessionA)
	res.SessionB = ref("session_b", d.SessionB)
	if d.Comparison == nil {
		f.missing("comparison")
		return res
	}
	for i, m := range d.Comparison.Matched {
		p := fmt.Sprintf("comparison.matched[%d].", i)
		res.Matched = append(res.Matched, domain.MatchedItem{
			Key:          domain.KeyOf(f.str(p+"product_id", m.ProductID), m.VariantID),
			ProductName:  optional(m.ProductName),
			SKU:          optional(m.SKU),
			QuantityA:    f.num(p+"quantity_a", m.QuantityA),
			QuantityB:    f.num(p+"quantity_b", m.QuantityB),
			QuantityDiff: f.num(p+"quantity_diff", m.QuantityDiff),
			IsMatch:      f.flag(p+"is_match", m.IsMatch),
		})
	}
	res.OnlyInA = only("comparison.only_in_a", d.Comparison.OnlyInA)
	res.OnlyInB = only("comparison.only_in_b", d.Comparison.OnlyInB)
	// The counters always follow the buckets; a reported summary is only a
	// cross-check.
	res.Summarize()
	if d.Summary == nil {
		f.missing("summary")
	}
	return res
}

type mergeTargetDTO struct {
	SessionID      *string `json:"session_id"`
	ItemsBefore    *int    `json:"items_before"`
	ItemsAfter     *int    `json:"items_after"`
	QuantityBefore *int    `json:"quantity_before"`
	QuantityAfter  *int    `json:"quantity_after"`
	MembersBefore  *int    `json:"members_before"`
	MembersAfter   *int    `json:"members_after"`
}

type mergeSourceDTO struct {
	SessionID      *string `json:"session_id"`
	ItemsCopied    *int    `json:"items_copied"`
	QuantityCopied *int    `json:"quantity_copied"`
	MembersAdded   *int    `json:"members_added"`
	Deactivated    *bool   `json:"deactivated"`
}

type mergeSummaryDTO struct {
	UniqueProductsCopied *int `json:"unique_products_copied"`
}

type mergeDTO struct {
	TargetSession *mergeTargetDTO  `json:"target_session"`
	SourceSession *mergeSourceDTO  `json:"source_session"`
	Summary       *mergeSummaryDTO `json:"summary"`
}

func mergeToDTO(o *domain.MergeOutcome) mergeDTO {
	var d mergeDTO
	d.TargetSession = &mergeTargetDTO{
		SessionID:      ptr(o.TargetSessionID),
		ItemsBefore:    ptr(o.TargetItemsBefore),
		ItemsAfter:     ptr(o.TargetItemsAfter),
		QuantityBefore: ptr(o.TargetQuantityBefore),
		QuantityAfter:  ptr(o.TargetQuantityAfter),
		MembersBefore:  ptr(o.TargetMembersBefore),
		MembersAfter:   ptr(o.TargetMembersAfter),
	}
	d.SourceSession = &mergeSourceDTO{
		SessionID:      ptr(o.SourceSessionID),
		ItemsCopied:    ptr(o.ItemsCopied),
		QuantityCopied: ptr(o.QuantityCopied),
		MembersAdded:   ptr(o.MembersAdded),
		Deactivated:    ptr(o.SourceDeactivated),
	}
	d.Summary = &mergeSummaryDTO{UniqueProductsCopied: ptr(o.UniqueProductsCopied)}
	return d
}

func (d mergeDTO) decode(f *fields) *domain.MergeOutcome {
	out := &domain.MergeOutcome{}
	if t := d.TargetSession; t == nil {
		f.missing("target_session")
	} else {
		out.TargetSessionID = f.str("target_session.session_id", t.SessionID)
		out.TargetItemsBefore = f.num("target_session.items_before", t.ItemsBefore)
		out.TargetItemsAfter = f.num("target_session.items_after", t.ItemsAfter)
		out.TargetQuantityBefore = f.num("target_session.quantity_before", t.QuantityBefore)
		out.TargetQuantityAfter = f.num("target_session.quantity_after", t.QuantityAfter)
		out.TargetMembersBefore = optional(t.MembersBefore)
		out.TargetMembersAfter = optional(t.MembersAfter)
	}
	if s := d.SourceSession; s == nil {
		f.missing("source_session")
	} else {
		out.SourceSessionID = f.str("source_session.session_id", s.SessionID)
		out.ItemsCopied = f.num("source_session.items_copied", s.ItemsCopied)
		out.QuantityCopied = f.num("source_session.quantity_copied", s.QuantityCopied)
		out.MembersAdded = optional(s.MembersAdded)
		out.SourceDeactivated = f.flag("source_session.deactivated", s.Deactivated)
	}
	if d.Summary != nil {
		out.UniqueProductsCopied = optional(d.Summary.UniqueProductsCopied)
	}
	return out
}

type stockChangeDTO struct {
	ProductID        *string `json:"product_id"`
	VariantID        *string `json:"variant_id"`
	ProductName      *string `json:"product_name"`
	SKU              *string `json:"sku"`
	QuantityBefore   *int    `json:"quantity_before"`
	QuantityReceived *int    `json:"quantity_received"`
	QuantityAfter    *int    `json:"quantity_after"`
	NeedsDisplay     bool    `json:"needs_display"`
}

type submitDTO struct {
	SubmissionID    *string          `json:"submission_id"`
	ReceivingNumber *string          `json:"receiving_number"`
	SessionID       *string          `json:"session_id"`
	IsFinal         *bool            `json:"is_final"`
	ItemsCount      *int             `json:"items_count"`
	TotalQuantity   *int             `json:"total_quantity"`
	TotalRejected   *int             `json:"total_rejected"`
	TotalCost       *decimal.Decimal `json:"total_cost"`
	StockChanges    []stockChangeDTO `json:"stock_changes"`
	NewDisplayCount int              `json:"new_display_count"`
	SubmittedBy     *string          `json:"submitted_by"`
	SubmittedAt     *time.Time       `json:"submitted_at"`
}

func submitToDTO(r *domain.SubmitResult) submitDTO {
	changes := make([]stockChangeDTO, 0, len(r.StockChanges))
	for _, s := range r.StockChanges {
		changes = append(changes, stockChangeDTO{
			ProductID:        ptr(s.Key.ProductID),
			VariantID:        s.Key.VariantPtr(),
			ProductName:      ptr(s.ProductName),
			SKU:              ptr(s.SKU),
			QuantityBefore:   ptr(s.QuantityBefore),
			QuantityReceived: ptr(s.QuantityReceived),
			QuantityAfter:    ptr(s.QuantityAfter),
			NeedsDisplay:     s.NeedsDisplay(),
		})
	}
	return submitDTO{
		SubmissionID:    ptr(r.SubmissionID),
		ReceivingNumber: ptr(r.ReceivingNumber),
		SessionID:       ptr(r.SessionID),
		IsFinal:         ptr(r.IsFinal),
		ItemsCount:      ptr(r.ItemsCount),
		TotalQuantity:   ptr(r.TotalQuantity),
		TotalRejected:   ptr(r.TotalRejected),
		TotalCost:       ptr(r.TotalCost),
		StockChanges:    changes,
		NewDisplayCount: len(r.NeedsDisplay()),
		SubmittedBy:     ptr(r.SubmittedBy),
		SubmittedAt:     ptr(r.SubmittedAt),
	}
}

func (d submitDTO) decode(f *fields, at string) *domain.SubmitResult {
	res := &domain.SubmitResult{
		SubmissionID:    optional(d.SubmissionID),
		ReceivingNumber: f.str(at+"receiving_number", d.ReceivingNumber),
		SessionID:       optional(d.SessionID),
		IsFinal:         optional(d.IsFinal),
		ItemsCount:      f.num(at+"items_count", d.ItemsCount),
		TotalQuantity:   f.num(at+"total_quantity", d.TotalQuantity),
		TotalRejected:   optional(d.TotalRejected),
		TotalCost:       optional(d.TotalCost),
		SubmittedBy:     optional(d.SubmittedBy),
		SubmittedAt:     optional(d.SubmittedAt),
	}
	for i, s := range d.StockChanges {
		sat := fmt.Sprintf("%sstock_changes[%d].", at, i)
		// needs_display is recomputed from the quantities.
		res.StockChanges = append(res.StockChanges, domain.StockSnapshot{
			Key:              domain.KeyOf(f.str(sat+"product_id", s.ProductID), s.VariantID),
			ProductName:      optional(s.ProductName),
			SKU:              optional(s.SKU),
			QuantityBefore:   f.num(sat+"quantity_before", s.QuantityBefore),
			QuantityReceived: f.num(sat+"quantity_received", s.QuantityReceived),
			QuantityAfter:    f.num(sat+"quantity_after", s.QuantityAfter),
		})
	}
	return res
}

type productDTO struct {
	ProductID   *string          `json:"product_id"`
	VariantID   *string          `json:"variant_id"`
	StoreID     *string          `json:"store_id"`
	ProductName *string          `json:"product_name"`
	VariantName *string          `json:"variant_name"`
	SKU         *string          `json:"sku"`
	Barcode     *string          `json:"barcode"`
	UnitCost    *decimal.Decimal `json:"unit_cost"`
	OnHand      *int             `json:"quantity_on_hand"`
}

func productToDTO(p domain.Product) productDTO {
	return productDTO{
		ProductID:   ptr(p.Key.ProductID),
		VariantID:   p.Key.VariantPtr(),
		StoreID:     ptr(p.StoreID),
		ProductName: ptr(p.Name),
		VariantName: ptr(p.VariantName),
		SKU:         ptr(p.SKU),
		Barcode:     ptr(p.Barcode),
		UnitCost:    ptr(p.UnitCost),
		OnHand:      ptr(p.OnHand),
	}
}

func (d productDTO) decode(f *fields, at string) domain.Product {
	return domain.Product{
		Key:         domain.KeyOf(f.str(at+"product_id", d.ProductID), d.VariantID),
		StoreID:     optional(d.StoreID),
		Name:        f.str(at+"product_name", d.ProductName),
		VariantName: optional(d.VariantName),
		SKU:         optional(d.SKU),
		Barcode:     optional(d.Barcode),
		UnitCost:    optional(d.UnitCost),
		OnHand:      f.num(at+"quantity_on_hand", d.OnHand),
	}
}

type mergeRecordDTO struct {
	ID              *string    `json:"id"`
	TargetSessionID *string    `json:"target_session_id"`
	SourceSessionID *string    `json:"source_session_id"`
	ItemsCopied     *int       `json:"items_copied"`
	QuantityCopied  *int       `json:"quantity_copied"`
	MergedBy        *string    `json:"merged_by"`
	MergedAt        *time.Time `json:"merged_at"`
}

func mergeRecordToDTO(m domain.MergeRecord) mergeRecordDTO {
	return mergeRecordDTO{
		ID:              ptr(m.ID),
		TargetSessionID: ptr(m.TargetSessionID),
		SourceSessionID: ptr(m.SourceSessionID),
		ItemsCopied:     ptr(m.ItemsCopied),
		QuantityCopied:  ptr(m.QuantityCopied),
		MergedBy:        ptr(m.MergedBy),
		MergedAt:        ptr(m.MergedAt),
	}
}

func (d mergeRecordDTO) decode(f *fields, at string) domain.MergeRecord {
	return domain.MergeRecord{
		ID:              optional(d.ID),
		TargetSessionID: f.str(at+"target_session_id", d.TargetSessionID),
		SourceSessionID: f.str(at+"source_session_id", d.SourceSessionID),
		ItemsCopied:     f.num(at+"items_copied", d.ItemsCopied),
		QuantityCopied:  f.num(at+"quantity_copied", d.QuantityCopied),
		MergedBy:        optional(d.MergedBy),
		MergedAt:        optional(d.MergedAt),
	}
}

type shipmentItemDTO struct {
	ProductID         *string          `json:"product_id"`
	VariantID         *string          `json:"variant_id"`
	ProductName       *string          `json:"product_name"`
	VariantName       *string          `json:"variant_name"`
	SKU               *string          `json:"sku"`
	UnitCost          *decimal.Decimal `json:"unit_cost"`
	QuantityShipped   *int             `json:"quantity_shipped"`
	QuantityReceived  *int             `json:"quantity_received"`
	QuantityAccepted  *int             `json:"quantity_accepted"`
	QuantityRejected  *int             `json:"quantity_rejected"`
	QuantityRemaining *int             `json:"quantity_remaining"`
}

type receivingSummaryDTO struct {
	TotalShipped       *int     `json:"total_shipped"`
	TotalReceived      *int     `json:"total_received"`
	TotalAccepted      *int     `json:"total_accepted"`
	TotalRejected      *int     `json:"total_rejected"`
	TotalRemaining     *int     `json:"total_remaining"`
	ProgressPercentage *float64 `json:"progress_percentage"`
}

type shipmentDTO struct {
	ShipmentID       *string              `json:"shipment_id"`
	ShipmentNumber   *string              `json:"shipment_number"`
	SupplierName     *string              `json:"supplier_name"`
	StoreID          *string              `json:"store_id"`
	Status           *string              `json:"status"`
	Items            *[]shipmentItemDTO   `json:"items"`
	UnexpectedItems  []shipmentItemDTO    `json:"unexpected_items"`
	ReceivingSummary *receivingSummaryDTO `json:"receiving_summary"`
}

func shipmentToDTO(p *domain.ShipmentProgress) shipmentDTO {
	lines := func(items []domain.ShipmentItemProgress) []shipmentItemDTO {
		out := make([]shipmentItemDTO, 0, len(items))
		for _, it := range items {
			out = append(out, shipmentItemDTO{
				ProductID:         ptr(it.Key.ProductID),
				VariantID:         it.Key.VariantPtr(),
				ProductName:       ptr(it.ProductName),
				VariantName:       ptr(it.VariantName),
				SKU:               ptr(it.SKU),
				UnitCost:          ptr(it.UnitCost),
				QuantityShipped:   ptr(it.QuantityShipped),
				QuantityReceived:  ptr(it.QuantityReceived),
				QuantityAccepted:  ptr(it.QuantityAccepted),
				QuantityRejected:  ptr(it.QuantityRejected),
				QuantityRemaining: ptr(it.QuantityRemaining),
			})
		}
		return out
	}
	items := lines(p.Items)
	return shipmentDTO{
		ShipmentID:      ptr(p.ShipmentID),
		ShipmentNumber:  ptr(p.Number),
		SupplierName:    ptr(p.SupplierName),
		StoreID:         ptr(p.StoreID),
		Status:          ptr(string(p.Status)),
		Items:           &items,
		UnexpectedItems: lines(p.Unexpected),
		ReceivingSummary: &receivingSummaryDTO{
			TotalShipped:       ptr(p.Summary.TotalShipped),
			TotalReceived:      ptr(p.Summary.TotalReceived),
			TotalAccepted:      ptr(p.Summary.TotalAccepted),
			TotalRejected:      ptr(p.Summary.TotalRejected),
			TotalRemaining:     ptr(p.Summary.TotalRemaining),
			ProgressPercentage: ptr(p.Summary.ProgressPercentage),
		},
	}
}

// decode rebuilds the per-line progress. The summary is recomputed from the
// lines by NewShipmentProgress, so a reported summary only has to be present.
func (d shipmentDTO) decode(f *fields) *domain.ShipmentProgress {
	line := func(at string, it shipmentItemDTO) (domain.ShipmentLine, domain.Received) {
		l := domain.ShipmentLine{
			Key:             domain.KeyOf(f.str(at+"product_id", it.ProductID), it.VariantID),
			ProductName:     optional(it.ProductName),
			VariantName:     optional(it.VariantName),
			SKU:             optional(it.SKU),
			UnitCost:        optional(it.UnitCost),
			QuantityShipped: optional(it.QuantityShipped),
		}
		return l, domain.Received{
			Quantity:         f.num(at+"quantity_received", it.QuantityReceived),
			QuantityRejected: f.num(at+"quantity_rejected", it.QuantityRejected),
		}
	}

	ship := &domain.Shipment{
		ID:           f.str("shipment_id", d.ShipmentID),
		Number:       optional(d.ShipmentNumber),
		SupplierName: optional(d.SupplierName),
		StoreID:      optional(d.StoreID),
	}
	received := make(map[domain.ItemKey]domain.Received)
	names := make(map[domain.ItemKey]domain.ShipmentLine)
	if d.Items == nil {
		f.missing("items")
	} else {
		for i, it := range *d.Items {
			at := fmt.Sprintf("items[%d].", i)
			if it.QuantityShipped == nil {
				f.missing(at + "quantity_shipped")
			}
			l, r := line(at, it)
			ship.Lines = append(ship.Lines, l)
			received[l.Key] = r
		}
	}
	for i, it := range d.UnexpectedItems {
		l, r := line(fmt.Sprintf("unexpected_items[%d].", i), it)
		received[l.Key] = r
		names[l.Key] = l
	}
	if d.ReceivingSummary == nil {
		f.missing("receiving_summary")
	}

	p := domain.NewShipmentProgress(ship, received)
	for i := range p.Unexpected {
		l := names[p.Unexpected[i].Key]
		p.Unexpected[i].ProductName = l.ProductName
		p.Unexpected[i].VariantName = l.VariantName
		p.Unexpected[i].SKU = l.SKU
	}
	return p
}
