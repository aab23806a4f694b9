package models

import "time"

// BulletinLog is the audit entry written for every bulletin committed by an ingestion run.
type BulletinLog struct {
	FileDate  time.Time
	SourceURL string
	RowCount  int
}

// IngestionBatch is everything a single ingestion run writes. It is persisted atomically:
// either every record, log entry and replacement is committed, or nothing is.
type IngestionBatch struct {
	Results   []TradingResult
	Bulletins []BulletinLog
	// ReplaceDates lists trade dates whose existing rows are deleted before the insert
	// (forced re-ingestion).
	ReplaceDates []time.Time
}

// IsEmpty reports whether the batch has nothing to write.
func (b IngestionBatch) IsEmpty() bool {
	return len(b.Results) == 0 && len(b.Bulletins) == 0 && len(b.ReplaceDates) == 0
}
