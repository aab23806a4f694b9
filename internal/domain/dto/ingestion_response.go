package dto

// IngestionResponse acknowledges a successful ingestion run.
type IngestionResponse struct {
	ResponseMessage     string `json:"response_message" example:"ingestion completed"`
	WindowStart         string `json:"window_start" example:"2024-01-01"`
	WindowEnd           string `json:"window_end" example:"2024-01-05"`
	DatesRequested      int    `json:"dates_requested" example:"5"`
	DatesSkipped        int    `json:"dates_skipped" example:"1"`
	BulletinsDownloaded int    `json:"bulletins_downloaded" example:"3"`
	BulletinsMissing    int    `json:"bulletins_missing" example:"1"`
	RecordsInserted     int    `json:"records_inserted" example:"412"`
}
