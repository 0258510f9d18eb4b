package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"github.com/wecloud/backoffice/internal/config"
	"github.com/wecloud/backoffice/internal/subscriber/domain"
	"github.com/wecloud/backoffice/internal/subscriber/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupService(t *testing.T) domain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Subscriber{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		Config: config.Config{Gateway: config.GatewayConfig{DefaultCountry: "92"}},
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   repository.Provide(),
	})
}

func TestCreateNormalizesPhone(t *testing.T) {
	svc := setupService(t)

	created, err := svc.Create(context.Background(), domain.CreateSubscriberRequest{
		Name:  "Ali Raza",
		Phone: "0300 1234567",
	})
	require.NoError(t, err)
	require.Equal(t, "923001234567", created.Phone)
	require.True(t, created.Active)
	require.NotZero(t, created.ID)

	got, err := svc.GetByID(context.Background(), domain.GetSubscriberRequest{ID: created.ID.String()})
	require.NoError(t, err)
	require.Equal(t, created.Phone, got.Phone)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := setupService(t)

	_, err := svc.Create(context.Background(), domain.CreateSubscriberRequest{Name: "", Phone: "03001234567"})
	require.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(context.Background(), domain.CreateSubscriberRequest{Name: "Ali", Phone: "12"})
	require.ErrorIs(t, err, domain.ErrInvalidPhone)
}

func TestUpdateAppliesPartialChanges(t *testing.T) {
	svc := setupService(t)

	created, err := svc.Create(context.Background(), domain.CreateSubscriberRequest{
		Name:  "Ali Raza",
		Phone: "03001234567",
	})
	require.NoError(t, err)

	inactive := false
	newPhone := "03217654321"
	updated, err := svc.Update(context.Background(), domain.UpdateSubscriberRequest{
		ID:     created.ID.String(),
		Phone:  &newPhone,
		Active: &inactive,
	})
	require.NoError(t, err)
	require.Equal(t, "923217654321", updated.Phone)
	require.False(t, updated.Active)
	require.Equal(t, "Ali Raza", updated.Name)
}

func TestUpdateUnknownSubscriber(t *testing.T) {
	svc := setupService(t)

	name := "Someone"
	_, err := svc.Update(context.Background(), domain.UpdateSubscriberRequest{
		ID:   snowflake.ID(12345).String(),
		Name: &name,
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteRemovesSubscriber(t *testing.T) {
	svc := setupService(t)

	created, err := svc.Create(context.Background(), domain.CreateSubscriberRequest{
		Name:  "Ali Raza",
		Phone: "03001234567",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), domain.DeleteSubscriberRequest{ID: created.ID.String()}))

	_, err = svc.GetByID(context.Background(), domain.GetSubscriberRequest{ID: created.ID.String()})
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = svc.Delete(context.Background(), domain.DeleteSubscriberRequest{ID: created.ID.String()})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPaginates(t *testing.T) {
	svc := setupService(t)

	for i := 0; i < 5; i++ {
		_, err := svc.Create(context.Background(), domain.CreateSubscriberRequest{
			Name:  fmt.Sprintf("Subscriber %d", i),
			Phone: fmt.Sprintf("0300123456%d", i),
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	first, err := svc.List(context.Background(), domain.ListSubscriberRequest{PageSize: 3})
	require.NoError(t, err)
	require.Len(t, first.Subscribers, 3)
	require.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	second, err := svc.List(context.Background(), domain.ListSubscriberRequest{
		PageSize:  3,
		PageToken: first.NextPageToken,
	})
	require.NoError(t, err)
	require.Len(t, second.Subscribers, 2)
	require.False(t, second.HasMore)

	seen := map[string]bool{}
	for _, sub := range append(first.Subscribers, second.Subscribers...) {
		require.False(t, seen[sub.ID.String()], "duplicate across pages")
		seen[sub.ID.String()] = true
	}
}

func TestListFiltersByActive(t *testing.T) {
	svc := setupService(t)

	created, err := svc.Create(context.Background(), domain.CreateSubscriberRequest{
		Name:  "Active Sub",
		Phone: "03001234567",
	})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(context.Background(), domain.UpdateSubscriberRequest{
		ID:     created.ID.String(),
		Active: &inactive,
	})
	require.NoError(t, err)

	active := true
	resp, err := svc.List(context.Background(), domain.ListSubscriberRequest{PageSize: 10, Active: &active})
	require.NoError(t, err)
	require.Empty(t, resp.Subscribers)
}

func TestCreateBucketsAddressIntoRegion(t *testing.T) {
	svc := setupService(t)

	created, err := svc.Create(context.Background(), domain.CreateSubscriberRequest{
		Name:    "Ali Raza",
		Phone:   "03001234567",
		Address: "House 12, North Nazimabad",
	})
	require.NoError(t, err)
	require.Equal(t, domain.RegionNorth, created.Region)

	noZone, err := svc.Create(context.Background(), domain.CreateSubscriberRequest{
		Name:    "Sara Khan",
		Phone:   "03217654321",
		Address: "Model Town, Lahore",
	})
	require.NoError(t, err)
	require.Equal(t, domain.RegionOther, noZone.Region)
}

func TestUpdateAddressRecomputesRegion(t *testing.T) {
	svc := setupService(t)

	created, err := svc.Create(context.Background(), domain.CreateSubscriberRequest{
		Name:    "Ali Raza",
		Phone:   "03001234567",
		Address: "House 12, North Nazimabad",
	})
	require.NoError(t, err)

	moved := "Flat 4, South City Block B"
	updated, err := svc.Update(context.Background(), domain.UpdateSubscriberRequest{
		ID:      created.ID.String(),
		Address: &moved,
	})
	require.NoError(t, err)
	require.Equal(t, domain.RegionSouth, updated.Region)

	got, err := svc.GetByID(context.Background(), domain.GetSubscriberRequest{ID: created.ID.String()})
	require.NoError(t, err)
	require.Equal(t, domain.RegionSouth, got.Region)
}

func TestListFiltersByRegion(t *testing.T) {
	svc := setupService(t)

	_, err := svc.Create(context.Background(), domain.CreateSubscriberRequest{
		Name:    "Ali Raza",
		Phone:   "03001234567",
		Address: "House 12, North Nazimabad",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), domain.CreateSubscriberRequest{
		Name:    "Sara Khan",
		Phone:   "03217654321",
		Address: "Central Plaza, Saddar",
	})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), domain.ListSubscriberRequest{PageSize: 10, Region: "North"})
	require.NoError(t, err)
	require.Len(t, resp.Subscribers, 1)
	require.Equal(t, "Ali Raza", resp.Subscribers[0].Name)

	_, err = svc.List(context.Background(), domain.ListSubscriberRequest{PageSize: 10, Region: "offshore"})
	require.ErrorIs(t, err, domain.ErrInvalidRegion)
}

func TestListMatchesPartialNames(t *testing.T) {
	svc := setupService(t)

	_, err := svc.Create(context.Background(), domain.CreateSubscriberRequest{
		Name:  "Ali Raza",
		Phone: "03001234567",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), domain.CreateSubscriberRequest{
		Name:  "Sara Khan",
		Phone: "03217654321",
	})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), domain.ListSubscriberRequest{PageSize: 10, Name: "raza"})
	require.NoError(t, err)
	require.Len(t, resp.Subscribers, 1)
	require.Equal(t, "Ali Raza", resp.Subscribers[0].Name)

	none, err := svc.List(context.Background(), domain.ListSubscriberRequest{PageSize: 10, Name: "zubair"})
	require.NoError(t, err)
	require.Empty(t, none.Subscribers)
}
