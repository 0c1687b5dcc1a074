package journal

import (
	"time"

	"github.com/atlas-finance/wisebook/internal/model"
	"github.com/atlas-finance/wisebook/internal/money"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func line(row int, account string, debit, credit int64) model.CandidateEntry {
	return model.CandidateEntry{
		Row:       row,
		Account:   account,
		Label:     "Achat marchandises",
		Debit:     money.New(debit, "XOF"),
		Credit:    money.New(credit, "XOF"),
		Reference: "J1",
		Date:      date(2025, 1, 15),
		Origin:    model.OriginImported,
	}
}

func journal(entries ...model.CandidateEntry) model.JournalBatch {
	return model.JournalBatch{
		Key:     model.BatchKey{Reference: entries[0].Reference, Date: entries[0].Date},
		Entries: entries,
	}
}
