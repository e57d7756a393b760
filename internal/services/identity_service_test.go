package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stampcard/stampcard-api/internal/apperrors"
	"github.com/stampcard/stampcard-api/internal/db"
	"github.com/stampcard/stampcard-api/internal/mocks"
	"github.com/stampcard/stampcard-api/internal/services"
	"github.com/stampcard/stampcard-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func strPtr(s string) *string { return &s }

func TestIdentityService_ResolveOrCreate_EmptyIdentifier(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No store expectations: an empty identifier must not reach storage.
	mockStore := mocks.NewMockStore(ctrl)
	service := services.NewIdentityService(mockStore)

	_, _, err := service.ResolveOrCreate(context.Background(), "   ", "Ada")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestIdentityService_ResolveOrCreate_ExistingCustomer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockStore(ctrl)
	service := services.NewIdentityService(mockStore)
	ctx := context.Background()

	existing := db.Customer{
		ID:        "a@x.com",
		Name:      strPtr("Ada"),
		Email:     strPtr("a@x.com"),
		CreatedAt: time.Now().UTC(),
	}
	wallet := db.Wallet{CustomerID: "a@x.com", Stamps: 4}

	mockStore.EXPECT().GetCustomer(ctx, "a@x.com").Return(existing, nil)
	mockStore.EXPECT().GetWallet(ctx, "a@x.com").Return(wallet, nil)

	customer, gotWallet, err := service.ResolveOrCreate(ctx, "a@x.com", "Somebody Else")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", customer.ID)
	// The stored name is never overwritten on re-resolution.
	assert.Equal(t, "Ada", *customer.Name)
	assert.Equal(t, int32(4), gotWallet.Stamps)
}

func TestIdentityService_ResolveOrCreate_CreatesEmailCustomer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockStore(ctrl)
	service := services.NewIdentityService(mockStore)
	ctx := context.Background()

	mockStore.EXPECT().GetCustomer(ctx, "new@x.com").Return(db.Customer{}, db.ErrNotFound)
	mockStore.EXPECT().
		CreateCustomer(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, params db.CreateCustomerParams) (db.Customer, error) {
			assert.Equal(t, "new@x.com", params.ID)
			require.NotNil(t, params.Email)
			assert.Equal(t, "new@x.com", *params.Email)
			assert.Nil(t, params.Phone)
			require.NotNil(t, params.Name)
			assert.Equal(t, "Ada", *params.Name)
			return db.Customer{ID: params.ID, Name: params.Name, Email: params.Email}, nil
		})
	mockStore.EXPECT().GetWallet(ctx, "new@x.com").Return(db.Wallet{}, db.ErrNotFound)
	mockStore.EXPECT().CreateWallet(ctx, "new@x.com").Return(db.Wallet{CustomerID: "new@x.com"}, nil)

	customer, wallet, err := service.ResolveOrCreate(ctx, "new@x.com", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", customer.ID)
	assert.Equal(t, int32(0), wallet.Stamps)
}

func TestIdentityService_ResolveOrCreate_CreatesPhoneCustomer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockStore(ctrl)
	service := services.NewIdentityService(mockStore)
	ctx := context.Background()

	mockStore.EXPECT().GetCustomer(ctx, "+4915112345").Return(db.Customer{}, db.ErrNotFound)
	mockStore.EXPECT().
		CreateCustomer(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, params db.CreateCustomerParams) (db.Customer, error) {
			assert.Nil(t, params.Email)
			require.NotNil(t, params.Phone)
			assert.Equal(t, "+4915112345", *params.Phone)
			assert.Nil(t, params.Name)
			return db.Customer{ID: params.ID, Phone: params.Phone}, nil
		})
	mockStore.EXPECT().GetWallet(ctx, "+4915112345").Return(db.Wallet{}, db.ErrNotFound)
	mockStore.EXPECT().CreateWallet(ctx, "+4915112345").Return(db.Wallet{CustomerID: "+4915112345"}, nil)

	customer, _, err := service.ResolveOrCreate(ctx, "+4915112345", "")
	require.NoError(t, err)
	assert.Equal(t, "+4915112345", customer.ID)
}

func TestIdentityService_ResolveOrCreate_LosesCreateRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockStore(ctrl)
	service := services.NewIdentityService(mockStore)
	ctx := context.Background()

	winner := db.Customer{ID: "a@x.com", Email: strPtr("a@x.com")}

	gomock.InOrder(
		mockStore.EXPECT().GetCustomer(ctx, "a@x.com").Return(db.Customer{}, db.ErrNotFound),
		mockStore.EXPECT().CreateCustomer(ctx, gomock.Any()).Return(db.Customer{}, db.ErrConflict),
		mockStore.EXPECT().GetCustomer(ctx, "a@x.com").Return(winner, nil),
		mockStore.EXPECT().GetWallet(ctx, "a@x.com").Return(db.Wallet{CustomerID: "a@x.com"}, nil),
	)

	customer, _, err := service.ResolveOrCreate(ctx, "a@x.com", "")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", customer.ID)
}

func TestIdentityService_ResolveOrCreate_StorageError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockStore(ctrl)
	service := services.NewIdentityService(mockStore)
	ctx := context.Background()

	mockStore.EXPECT().GetCustomer(ctx, "a@x.com").Return(db.Customer{}, errors.New("connection refused"))

	_, _, err := service.ResolveOrCreate(ctx, "a@x.com", "")
	assert.ErrorIs(t, err, apperrors.ErrStorage)
}

func TestIdentityService_Lookup(t *testing.T) {
	store := testutil.NewMemStore()
	service := services.NewIdentityService(store)
	ctx := context.Background()

	_, _, err := service.Lookup(ctx, "missing@x.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 0, store.CustomerCount(), "lookup must not create customers")

	_, _, err = service.ResolveOrCreate(ctx, "a@x.com", "Ada")
	require.NoError(t, err)

	customer, wallet, err := service.Lookup(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", customer.ID)
	assert.Equal(t, int32(0), wallet.Stamps)
}

func TestIdentityService_ResolveOrCreate_Idempotent(t *testing.T) {
	store := testutil.NewMemStore()
	service := services.NewIdentityService(store)
	ctx := context.Background()

	first, _, err := service.ResolveOrCreate(ctx, "a@x.com", "Ada")
	require.NoError(t, err)

	second, wallet, err := service.ResolveOrCreate(ctx, "a@x.com", "Imposter")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ada", *second.Name)
	assert.Equal(t, int32(0), wallet.Stamps)
	assert.Equal(t, 1, store.CustomerCount())
}
