package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tourdesk/service-booking/internal/common/domain"
	"github.com/tourdesk/service-booking/internal/domain/auditlog"
	bookingDomain "github.com/tourdesk/service-booking/internal/domain/booking"
	"github.com/tourdesk/service-booking/internal/domain/product"
)

var baseTime = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// Every connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&BookingRequestModel{}, &RequestLogModel{}, &ProductModel{}))
	return db
}

func newRequest(t *testing.T, phone, date string, createdAt time.Time) *bookingDomain.BookingRequest {
	t.Helper()
	b, err := bookingDomain.NewBookingRequest(bookingDomain.NewRequestParams{
		ProductID:  uuid.New(),
		Customer:   bookingDomain.CustomerInfo{Name: "Lee", Phone: phone, Email: "lee@example.com"},
		Date:       date,
		AdultCount: 2,
	}, 130000, createdAt)
	require.NoError(t, err)
	return b
}

func TestBookingRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormBookingRepository(newTestDB(t))

	b := newRequest(t, "010-1111-2222", "2025-02-01", baseTime)
	require.NoError(t, repo.Save(ctx, b))

	got, err := repo.FindByID(ctx, b.ID())
	require.NoError(t, err)
	assert.Equal(t, b.ID(), got.ID())
	assert.Equal(t, "01011112222", got.Customer().Phone)
	assert.Equal(t, "lee@example.com", got.Customer().Email)
	assert.Equal(t, "2025-02-01", got.Date())
	assert.Equal(t, bookingDomain.StatusNew, got.Status())
	assert.Equal(t, int64(1), got.Version())
	assert.Equal(t, int64(130000), got.TotalAmount())

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, domain.IsNotFound(err))
}

func TestBookingRepository_FindByPhoneNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewGormBookingRepository(newTestDB(t))

	older := newRequest(t, "01011112222", "2025-02-01", baseTime)
	newer := newRequest(t, "01011112222", "2025-03-01", baseTime.Add(time.Hour))
	other := newRequest(t, "01099998888", "2025-02-01", baseTime)
	for _, b := range []*bookingDomain.BookingRequest{older, newer, other} {
		require.NoError(t, repo.Save(ctx, b))
	}

	got, err := repo.FindByPhone(ctx, "01011112222")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID(), got[0].ID())
	assert.Equal(t, older.ID(), got[1].ID())

	none, err := repo.FindByPhone(ctx, "01000000000")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBookingRepository_FindByDateRangeInclusive(t *testing.T) {
	ctx := context.Background()
	repo := NewGormBookingRepository(newTestDB(t))

	for _, d := range []string{"2024-12-28", "2024-12-29", "2025-01-15", "2025-02-08", "2025-02-09"} {
		require.NoError(t, repo.Save(ctx, newRequest(t, "01011112222", d, baseTime)))
	}

	got, err := repo.FindByDateRange(ctx, "2024-12-29", "2025-02-08")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-12-29", got[0].Date())
	assert.Equal(t, "2025-02-08", got[2].Date())
}

func TestBookingRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	repo := NewGormBookingRepository(newTestDB(t))

	for i := 0; i < 5; i++ {
		b := newRequest(t, "01011112222", "2025-02-01", baseTime.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Save(ctx, b))
		if i < 2 {
			prev := b.Version()
			require.NoError(t, b.TransitionTo(bookingDomain.StatusConfirmed, bookingDomain.Staff("s"), "", baseTime))
			entry, err := auditlog.NewStatusChange(b.ID(), "new", "confirmed", "", "s", baseTime)
			require.NoError(t, err)
			require.NoError(t, repo.UpdateStatus(ctx, b, prev, entry))
		}
	}

	page, total, err := repo.List(ctx, bookingDomain.ListFilter{}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, page, 2)

	confirmed, total, err := repo.List(ctx, bookingDomain.ListFilter{Status: bookingDomain.StatusConfirmed}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, confirmed, 2)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[bookingDomain.StatusNew])
	assert.Equal(t, int64(2), counts[bookingDomain.StatusConfirmed])
	assert.Equal(t, int64(0), counts[bookingDomain.StatusCancelled])
	assert.Len(t, counts, len(bookingDomain.AllStatuses))
}

func TestBookingRepository_UpdateStatusWritesLogAtomically(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormBookingRepository(db)
	logs := NewGormRequestLogRepository(db)

	b := newRequest(t, "01011112222", "2025-02-01", baseTime)
	require.NoError(t, repo.Save(ctx, b))

	require.NoError(t, b.TransitionTo(bookingDomain.StatusInquiring, bookingDomain.Staff("staff-1"), "", baseTime.Add(time.Minute)))
	entry, err := auditlog.NewStatusChange(b.ID(), "new", "inquiring", "", "staff-1", baseTime.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, b, 1, entry))

	stored, err := repo.FindByID(ctx, b.ID())
	require.NoError(t, err)
	assert.Equal(t, bookingDomain.StatusInquiring, stored.Status())
	assert.Equal(t, int64(2), stored.Version())

	entries, err := logs.ListByRequest(ctx, b.ID())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new -> inquiring", entries[0].Notes())
	assert.Equal(t, "staff-1", entries[0].Actor())
}

func TestBookingRepository_UpdateStatusStaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormBookingRepository(db)
	logs := NewGormRequestLogRepository(db)

	b := newRequest(t, "01011112222", "2025-02-01", baseTime)
	require.NoError(t, repo.Save(ctx, b))

	require.NoError(t, b.TransitionTo(bookingDomain.StatusRejected, bookingDomain.Staff("staff-1"), "", baseTime))
	entry, err := auditlog.NewStatusChange(b.ID(), "new", "rejected", "", "staff-1", baseTime)
	require.NoError(t, err)

	err = repo.UpdateStatus(ctx, b, 7, entry)
	assert.True(t, domain.IsConflict(err))

	stored, err := repo.FindByID(ctx, b.ID())
	require.NoError(t, err)
	assert.Equal(t, bookingDomain.StatusNew, stored.Status())
	assert.Equal(t, int64(1), stored.Version())

	entries, err := logs.ListByRequest(ctx, b.ID())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRequestLogRepository_OrderAndFilter(t *testing.T) {
	ctx := context.Background()
	logs := NewGormRequestLogRepository(newTestDB(t))
	requestID := uuid.New()

	// Same timestamp on purpose: ids must keep insertion order.
	memo1, err := auditlog.NewMemo(requestID, "called customer", "staff-1", baseTime)
	require.NoError(t, err)
	change, err := auditlog.NewStatusChange(requestID, "new", "inquiring", "", "staff-1", baseTime)
	require.NoError(t, err)
	memo2, err := auditlog.NewMemo(requestID, "sent quote", "staff-2", baseTime)
	require.NoError(t, err)
	for _, e := range []*auditlog.Entry{memo1, change, memo2} {
		require.NoError(t, logs.Append(ctx, e))
	}
	require.NoError(t, logs.Append(ctx, mustMemo(t, uuid.New())))

	all, err := logs.ListByRequest(ctx, requestID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, memo1.ID(), all[0].ID())
	assert.Equal(t, change.ID(), all[1].ID())
	assert.Equal(t, memo2.ID(), all[2].ID())

	memos, err := logs.ListByRequest(ctx, requestID, auditlog.ActionAdminMemo)
	require.NoError(t, err)
	require.Len(t, memos, 2)
	assert.Equal(t, "called customer", memos[0].Notes())
	assert.Equal(t, "sent quote", memos[1].Notes())
}

func mustMemo(t *testing.T, requestID uuid.UUID) *auditlog.Entry {
	t.Helper()
	e, err := auditlog.NewMemo(requestID, "unrelated", "staff-9", baseTime)
	require.NoError(t, err)
	return e
}

func TestProductRepository_NormalizeLegacyLists(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormProductRepository(db)

	insert := func(includes, excludes string) uuid.UUID {
		id := uuid.New()
		require.NoError(t, db.Exec(
			"INSERT INTO products (id, name, adult_price, child_price, includes_ko, excludes_ko, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			id.String(), "Jeju day tour", 65000, 30000, includes, excludes, baseTime, baseTime,
		).Error)
		return id
	}
	legacy := insert("점심, 입장료", `"[\"가이드 팁\"]"`)
	canonical := insert(`["점심"]`, `[]`)

	n, err := repo.NormalizeLegacyLists(ctx, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, err := repo.FindByID(ctx, legacy)
	require.NoError(t, err)
	assert.Equal(t, product.List{"점심", "입장료"}, p.IncludesKO)
	assert.Equal(t, product.List{"가이드 팁"}, p.ExcludesKO)

	p, err = repo.FindByID(ctx, canonical)
	require.NoError(t, err)
	assert.Equal(t, product.List{"점심"}, p.IncludesKO)
	assert.Equal(t, product.List{}, p.ExcludesKO)

	n, err = repo.NormalizeLegacyLists(ctx, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, n)

	prices, err := repo.GetUnitPrices(ctx, legacy)
	require.NoError(t, err)
	assert.Equal(t, product.UnitPrices{Adult: 65000, Child: 30000}, prices)

	_, err = repo.GetUnitPrices(ctx, uuid.New())
	assert.True(t, domain.IsNotFound(err))
}
