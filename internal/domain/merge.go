package domain

import "time"

// MergeOutcome describes the effect of combining a source session into a
// target session.
type MergeOutcome struct {
	TargetSessionID string
	SourceSessionID string

	TargetItemsBefore    int
	TargetItemsAfter     int
	TargetQuantityBefore int
	TargetQuantityAfter  int
	TargetMembersBefore  int
	TargetMembersAfter   int

	ItemsCopied          int
	QuantityCopied       int
	UniqueProductsCopied int
	MembersAdded         int
	SourceDeactivated    bool
}

// MergeRecord is one entry of a session's merge log.
type MergeRecord struct {
	ID              string
	TargetSessionID string
	SourceSessionID string
	ItemsCopied     int
	QuantityCopied  int
	MergedBy        string
	MergedAt        time.Time
}
