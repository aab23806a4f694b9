package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/guttosm/spimexpulse/config"
	"github.com/guttosm/spimexpulse/internal/domain/models"
	"github.com/guttosm/spimexpulse/internal/service"
)

func TestNewServices_WiresStoreThroughCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	cfg := config.Config{
		Ingestion: config.IngestionConfig{Timezone: "Europe/Moscow", MaxWindowDays: 30},
		Bulletin:  config.BulletinConfig{URLTemplate: "http://localhost/{date}.xls"},
	}
	svcs := NewServices(cfg, db, nil)
	if svcs.Repo == nil || svcs.Results == nil || svcs.Coordinator == nil {
		t.Fatalf("incomplete services: %+v", svcs)
	}

	// without redis, reads go straight to postgres
	mock.ExpectQuery(`SELECT MAX\(date\) FROM spimex_trading_results`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := svcs.Results.GetLastResults(ctx, models.ResultsFilter{}); !errors.Is(err, service.ErrStoreEmpty) {
		t.Fatalf("expected empty store error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
