package pipeline

import (
	"github.com/atlas-finance/wisebook/internal/dedupe"
	"github.com/atlas-finance/wisebook/internal/model"
)

func fingerprint(e model.CandidateEntry) string {
	return dedupe.Fingerprint(e)
}
