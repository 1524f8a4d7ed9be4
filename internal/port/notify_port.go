package port

import "github.com/nikolayk812/storefront-cart/internal/notify"

type Notifier interface {
	Notify(n notify.Notification)
}
