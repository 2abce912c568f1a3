package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"testing"

	"investment-reward-system/models"
	"investment-reward-system/services"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type adminFixture struct {
	app      *fiber.App
	db       *gorm.DB
	products *services.ProductService
	admin    *models.User
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// in-memory sqlite lives per-connection; keep the pool at one
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Investment{},
		&models.ProductTask{},
		&models.Transaction{},
		&models.Referral{},
		&models.Notification{},
		&models.PaymentEvent{},
	))

	cfg := services.RewardConfig{WelcomeBonus: 300, RegistrationBonusPercent: 24}
	notifier := services.NewNotificationService(db)
	referrals := services.NewReferralService(db, cfg, notifier)
	transactions := services.NewTransactionService(db, referrals, notifier)
	tasks := services.NewTaskService(db, notifier)
	products := services.NewProductService(db, tasks)
	users := services.NewUserService(db, cfg, notifier)

	admin := models.User{
		ID:             uuid.NewString(),
		ExternalUserID: uuid.NewString(),
		Phone:          "0809000000",
		Name:           "Ops",
		ReferralCode:   uuid.NewString()[:8],
		Status:         models.UserStatusActive,
		IsAdmin:        true,
	}
	require.NoError(t, db.Create(&admin).Error)

	app := fiber.New()
	SetupAdminRoutes(app, transactions, products, users)

	return &adminFixture{app: app, db: db, products: products, admin: &admin}
}

func TestUploadProductImageStoresFileAndUpdatesProduct(t *testing.T) {
	fx := newAdminFixture(t)

	// Uploads fall back to the local disk tree in tests; keep it in a temp dir.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	product, err := fx.products.CreateProduct("Gold Plan", "premium", "", 5000, 30000, 0, 30)
	require.NoError(t, err)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", "gold.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/s/admin/products/"+product.ID+"/image", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("X-User-ID", fx.admin.ExternalUserID)

	resp, err := fx.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var updated models.Product
	require.NoError(t, fx.db.First(&updated, "id = ?", product.ID).Error)
	assert.Contains(t, updated.ImageURL, "uploads/products/")
	assert.Contains(t, updated.ImageURL, "gold.png")

	saved, err := os.ReadFile(updated.ImageURL[1:])
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), saved)
}

func TestUploadProductImageRequiresFile(t *testing.T) {
	fx := newAdminFixture(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/s/admin/products/"+uuid.NewString()+"/image", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("X-User-ID", fx.admin.ExternalUserID)

	resp, err := fx.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
