package ingest

import (
	"context"
	"log/slog"

	"github.com/poiesic/triplex/storage"
)

// Verifier audits the all-or-nothing invariant: an item is either fully
// represented across the backends or absent from all of them.
type Verifier struct {
	backends Backends
	ledger   storage.Ledger
	logger   *slog.Logger
}

// ItemPresence is what the audit found for one item.
type ItemPresence struct {
	ItemID       string
	HasDocument  bool
	VectorCount  int
	SectionCount int
	LedgerHash   string
}

// Consistent reports whether the item honors the all-or-nothing invariant.
// A fully present item has a search document and at least one section; the
// vector count may legitimately be zero for items without images. A fully
// absent item has nothing anywhere.
func (p *ItemPresence) Consistent() bool {
	present := p.HasDocument && p.SectionCount > 0
	absent := !p.HasDocument && p.VectorCount == 0 && p.SectionCount == 0
	return present || absent
}

// AuditReport aggregates one verification pass.
type AuditReport struct {
	Checked      int
	Inconsistent []*ItemPresence
}

// NewVerifier creates a verifier over the given backends.
func NewVerifier(backends Backends, ledger storage.Ledger) *Verifier {
	return &Verifier{
		backends: backends,
		ledger:   ledger,
		logger:   slog.Default().With("component", "verify"),
	}
}

// VerifyItem probes every backend for one item.
func (v *Verifier) VerifyItem(ctx context.Context, itemID string) (*ItemPresence, error) {
	presence := &ItemPresence{ItemID: itemID}

	has, err := v.backends.Search.HasDocument(ctx, itemID)
	if err != nil {
		return nil, err
	}
	presence.HasDocument = has

	presence.VectorCount, err = v.backends.Vectors.CountByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	presence.SectionCount, err = v.backends.Documents.CountByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if v.ledger != nil {
		presence.LedgerHash, err = v.ledger.LastHash(ctx, itemID)
		if err != nil {
			return nil, err
		}
	}
	return presence, nil
}

// Verify audits the given item IDs and reports every violation.
func (v *Verifier) Verify(ctx context.Context, itemIDs []string) (*AuditReport, error) {
	report := &AuditReport{}
	for _, id := range itemIDs {
		presence, err := v.VerifyItem(ctx, id)
		if err != nil {
			return report, err
		}
		report.Checked++
		if !presence.Consistent() {
			v.logger.Warn("item violates all-or-nothing presence",
				"item", id, "doc", presence.HasDocument,
				"vectors", presence.VectorCount, "sections", presence.SectionCount)
			report.Inconsistent = append(report.Inconsistent, presence)
		}
	}
	return report, nil
}
