package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/apitest"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
)

type env struct {
	b        *apitest.Backend
	client   *apiclient.Client
	bus      *events.Bus
	sess     *session.Store
	customer models.Customer
	profile  *Profile
}

func newEnv(t *testing.T) *env {
	t.Helper()
	b := apitest.New(t)
	client := apiclient.NewClient(b.URL())
	bus := events.NewBus()
	cust := b.AddCustomer(models.Customer{Name: "Meera", Email: "meera@example.com", Phone: "9000000001"}, "Secret@123")
	sess := session.NewCustomerStore(session.NewMemoryStorage(), client, bus)
	require.NoError(t, sess.SignIn(context.Background(), cust.Email, "Secret@123"))
	return &env{b: b, client: client, bus: bus, sess: sess, customer: cust, profile: New(client, sess, bus)}
}

func TestUpdateKeepsEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.profile.Update(ctx, Changes{Name: "x"}, nil)
	require.ErrorIs(t, err, ErrNotLoaded)

	loaded, err := e.profile.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "Meera", loaded.Name)

	var updates int
	e.bus.Subscribe(events.ProfileUpdated, func(context.Context, events.Event) { updates++ })

	addr := "12 Lake Road"
	updated, err := e.profile.Update(ctx, Changes{Name: " Meera K ", Phone: "9000000002", Address: &addr}, nil)
	require.NoError(t, err)
	require.Equal(t, "Meera K", updated.Name)
	require.Equal(t, "meera@example.com", updated.Email)
	require.Equal(t, 1, updates)

	stored, ok := e.b.Customer(e.customer.CustomerID)
	require.True(t, ok)
	require.Equal(t, "meera@example.com", stored.Email)
	require.Equal(t, "9000000002", stored.Phone)
	require.Equal(t, addr, *stored.Address)
}

func TestUpdateWithImage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.profile.Load(ctx)
	require.NoError(t, err)

	_, err = e.profile.Update(ctx, Changes{Name: "Meera"}, &apiclient.Image{Name: "me.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}})
	require.NoError(t, err)

	stored, _ := e.b.Customer(e.customer.CustomerID)
	require.Equal(t, "image/png", stored.ImageType)
}

func TestDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	declined := cart.ConfirmFunc(func(_ context.Context, prompt string) bool {
		require.Equal(t, DeletePrompt, prompt)
		return false
	})
	require.ErrorIs(t, e.profile.Delete(ctx, declined), ErrDeclined)
	require.Equal(t, 0, e.b.Hits("DELETE /customer/:id"))

	require.NoError(t, e.profile.Delete(ctx, cart.AlwaysConfirm))
	_, ok := e.b.Customer(e.customer.CustomerID)
	require.False(t, ok)
	require.False(t, e.sess.IsAuthenticated())

	require.ErrorIs(t, e.profile.Delete(ctx, cart.AlwaysConfirm), ErrNoCustomer)
}

func TestVerifyPasswordKeepsSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.profile.VerifyPassword(ctx, "Secret@123"))
	require.ErrorIs(t, e.profile.VerifyPassword(ctx, "nope"), ErrWrongPassword)
	require.True(t, e.sess.IsAuthenticated())
}

func TestAddressBook(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	saved, err := e.profile.AddAddress(ctx, models.Address{Street: "1 Main St", City: "Pune", State: "MH", ZipCode: "411001", AddressType: "HOME"})
	require.NoError(t, err)
	require.NotNil(t, saved.ID)

	_, err = e.profile.UpdateAddress(ctx, models.Address{Street: "no id"})
	require.ErrorIs(t, err, apiclient.ErrAddressID)
	require.Equal(t, 0, e.b.Hits("PUT /customer/:id/profile/address"))

	saved.City = "Mumbai"
	_, err = e.profile.UpdateAddress(ctx, *saved)
	require.NoError(t, err)

	list, err := e.profile.Addresses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Mumbai", list[0].City)

	require.NoError(t, e.profile.DeleteAddress(ctx, *saved.ID))
	list, err = e.profile.Addresses(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestSignedOut(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.sess.Logout(ctx))

	_, err := e.profile.Load(ctx)
	require.ErrorIs(t, err, ErrNoCustomer)
	_, err = e.profile.Addresses(ctx)
	require.ErrorIs(t, err, ErrNoCustomer)
}
