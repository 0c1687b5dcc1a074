package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/atlas-finance/wisebook/internal/apperrors"
	"github.com/atlas-finance/wisebook/internal/model"
)

// NormalizeLabel trims, lowercases, strips accents and collapses whitespace:
// "  Achat   Marchandises Côte " -> "achat marchandises cote".
func NormalizeLabel(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(folded), " ")
}

// Fingerprint identifies an entry by date, account, amount, side and label.
func Fingerprint(e model.CandidateEntry) string {
	key := strings.Join([]string{
		e.Date.Format("2006-01-02"),
		e.Account,
		strconv.FormatInt(e.Amount().Amount, 10),
		string(e.Side()),
		NormalizeLabel(e.Label),
	}, "|")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Lookup answers whether a fingerprint is already in the ledger for a period.
type Lookup interface {
	Exists(ctx context.Context, fingerprint, period string) (bool, error)
}

// Detector flags duplicates against the ledger and earlier entries of the same run.
type Detector struct {
	lookup Lookup
	strict bool
}

// NewDetector returns a Detector. In strict mode a batch holding any duplicate is rejected.
func NewDetector(lookup Lookup, strict bool) *Detector {
	return &Detector{lookup: lookup, strict: strict}
}

// Result is the outcome of checking a run's batches.
type Result struct {
	Accepted []model.JournalBatch
	Rejected []model.JournalBatch
	Issues   []model.Issue
}

type hit struct {
	entry  model.CandidateEntry
	reason string
}

// Check inspects batches in order. System-generated lines are not checked.
// A Lookup failure aborts the check with apperrors.ErrLedgerUnavailable.
func (d *Detector) Check(ctx context.Context, batches []model.JournalBatch) (Result, error) {
	var res Result
	seen := make(map[string]int)

	for _, b := range batches {
		var hits []hit
		for _, e := range b.Entries {
			if e.Origin == model.OriginSystemGenerated {
				continue
			}
			fp := Fingerprint(e)
			if row, ok := seen[fp]; ok {
				hits = append(hits, hit{e, fmt.Sprintf("same as row %d of this import", row)})
				continue
			}
			seen[fp] = e.Row

			if d.lookup == nil {
				continue
			}
			exists, err := d.lookup.Exists(ctx, fp, e.Period())
			if err != nil {
				return Result{}, fmt.Errorf("%w: duplicate lookup: %v", apperrors.ErrLedgerUnavailable, err)
			}
			if exists {
				hits = append(hits, hit{e, "already in the ledger for " + e.Period()})
			}
		}

		if len(hits) == 0 {
			res.Accepted = append(res.Accepted, b)
			continue
		}

		if d.strict {
			rows := make([]string, len(hits))
			for i, h := range hits {
				rows[i] = strconv.Itoa(h.entry.Row)
			}
			res.Issues = append(res.Issues, model.Issue{
				Severity:  model.SeverityError,
				Kind:      model.KindDuplicate,
				Rows:      b.Rows(),
				Reference: b.Key.String(),
				Message:   fmt.Sprintf("journal rejected: duplicate rows %s", strings.Join(rows, ", ")),
			})
			res.Rejected = append(res.Rejected, b)
			continue
		}

		for _, h := range hits {
			is := model.RowWarning(h.entry.Row, model.KindDuplicate, "possible duplicate: %s", h.reason)
			is.Account = h.entry.Account
			is.Reference = b.Key.String()
			res.Issues = append(res.Issues, is)
		}
		res.Accepted = append(res.Accepted, b)
	}
	return res, nil
}
