// workers/payment_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"investment-reward-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettledPayment matches the JSON the payment provider returns for one
// settled bank transfer.
type SettledPayment struct {
	ID            string    `json:"id"`
	BankReference string    `json:"bank_reference"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	SettledAt     time.Time `json:"settled_at"`
}

// GetSettlementsResponse is the top-level structure of the provider response.
type GetSettlementsResponse struct {
	Payments []SettledPayment `json:"payments"`
}

// PaymentSyncWorker polls the payment provider for settled transfers and
// flags matching pending deposits as provider-confirmed so the admin review
// queue shows which requests have verified money behind them.
type PaymentSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "https://payments.example.com"
	endpointPath string // e.g., "/api/v1/public/settlements"
	serviceToken string
	httpClient   *http.Client
}

func NewPaymentSyncWorker(db *gorm.DB, providerBaseURL, endpointPath, serviceToken string) *PaymentSyncWorker {
	return &PaymentSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      providerBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *PaymentSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Payment Sync Worker (provider → payment_events)…")
	go w.run(ctx)
}

func (w *PaymentSyncWorker) run(ctx context.Context) {
	// Initial sync backfills from the beginning of time.
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial payment sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Incremental syncs resume from the newest settlement we hold;
			// the cursor is derived from the table, so a failed batch is
			// simply retried on the next tick.
			since := w.getLastSyncTime()
			if err := w.syncBatch(ctx, since); err != nil {
				log.Printf("❌ Payment sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Payment Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent SettledAt in the local mirror.
func (w *PaymentSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(settled_at) FROM payment_events").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch pulls settlements since the cursor, upserts them into the mirror
// and matches them against pending deposit requests.
func (w *PaymentSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid payment provider URL %q: %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call payment provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("payment provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var response GetSettlementsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}

	if len(response.Payments) == 0 {
		return nil
	}

	events := make([]models.PaymentEvent, len(response.Payments))
	for i, p := range response.Payments {
		events[i] = models.PaymentEvent{
			ID:            p.ID,
			BankReference: p.BankReference,
			Amount:        p.Amount,
			Currency:      p.Currency,
			SettledAt:     p.SettledAt,
		}
	}

	// Bulk upsert keyed on the bank reference: re-delivered settlements
	// refresh the row instead of duplicating it.
	if err := w.db.Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "bank_reference"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"amount",
				"currency",
				"settled_at",
				"updated_at",
			}),
		},
	).Create(&events).Error; err != nil {
		return fmt.Errorf("failed to upsert %d payment event(s): %w", len(events), err)
	}
	log.Printf("📥 Upserted %d payment event(s)", len(events))

	return w.matchPendingDeposits()
}

// matchPendingDeposits flags pending deposit requests whose bank reference
// appears among unmatched settlements. Confirmation is advisory: the admin
// still approves, and the flag never credits a balance by itself.
func (w *PaymentSyncWorker) matchPendingDeposits() error {
	var events []models.PaymentEvent
	if err := w.db.Where("matched = ?", false).Find(&events).Error; err != nil {
		return err
	}

	for _, ev := range events {
		res := w.db.Model(&models.Transaction{}).
			Where("kind = ? AND status = ? AND bank_reference = ? AND provider_confirmed = ?",
				models.TransactionKindDeposit, models.TransactionStatusPending, ev.BankReference, false).
			Update("provider_confirmed", true)
		if res.Error != nil {
			log.Printf("❌ Failed to confirm deposits for reference %s: %v", ev.BankReference, res.Error)
			continue
		}
		if res.RowsAffected > 0 {
			if err := w.db.Model(&models.PaymentEvent{}).
				Where("id = ?", ev.ID).
				Update("matched", true).Error; err != nil {
				log.Printf("❌ Failed to mark payment event %s matched: %v", ev.ID, err)
				continue
			}
			log.Printf("✅ Confirmed %d deposit(s) for bank reference %s", res.RowsAffected, ev.BankReference)
		}
	}
	return nil
}
