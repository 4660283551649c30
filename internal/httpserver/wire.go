package httpserver

import (
	"context"
	"log/slog"

	"github.com/Skotchmaster/storefront/internal/backoffice"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/guard"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/orders"
	"github.com/Skotchmaster/storefront/internal/profile"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
)

type Sources struct {
	Logger  *slog.Logger
	Client  *apiclient.Client
	Storage session.Storage
	Bus     *events.Bus
	Metrics *metrics.Metrics
	// Index is optional.
	Index *catalog.ESIndex
}

// Wire builds the state modules of one storefront on top of src. Both
// session stores share src.Storage.
func Wire(src Sources) *Deps {
	client, bus := src.Client, src.Bus

	customer := session.NewCustomerStore(src.Storage, client, bus)
	admin := session.NewAdminStore(src.Storage, client, bus)
	inbox := notify.NewInbox()

	var (
		menuOpts []catalog.Option
		writer   backoffice.IndexWriter
	)
	if src.Index != nil {
		menuOpts = append(menuOpts, catalog.WithIndex(src.Index))
		writer = src.Index
	}

	d := &Deps{
		Logger:   src.Logger,
		Client:   client,
		Bus:      bus,
		Guard:    guard.StorageState{Storage: src.Storage},
		Customer: customer,
		Admin:    admin,

		Menu:      catalog.New(client, customer, apiclient.AudienceCustomer, menuOpts...),
		Cart:      cart.New(client, customer, bus),
		Wishlist:  cart.NewWishlist(client, customer, bus),
		Checkout:  checkout.New(client, customer, bus),
		History:   orders.NewHistory(client, customer),
		Profile:   profile.New(client, customer, bus),
		Board:     orders.NewBoard(client, admin, inbox, bus),
		Foods:     backoffice.NewFoods(client, admin, catalog.New(client, admin, apiclient.AudienceAdmin, menuOpts...), writer),
		Customers: backoffice.NewCustomers(client, admin),

		Inbox:   inbox,
		Metrics: src.Metrics,
	}
	if src.Metrics != nil {
		d.Hub = NewHub(src.Metrics.WSClients)
	} else {
		d.Hub = NewHub(nil)
	}

	d.Cart.Watch(bus)
	d.History.Watch(bus)
	bus.Subscribe(events.SessionChanged, func(_ context.Context, ev events.Event) {
		if ev.Payload == string(models.RoleCustomer) {
			d.Wishlist.Reset()
			d.Checkout.Reset()
		}
	})
	d.Hub.Attach(bus)
	return d
}
