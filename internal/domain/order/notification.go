package order

// NotificationLine is one order line summarised for a message template.
type NotificationLine struct {
	Name         string
	SKU          string
	Quantity     int
	PricePerUnit int64
	Subtotal     int64
}

// Notification is the payload consumed by the external email/WhatsApp
// renderers. The core hands over the finalized numbers; formatting and
// delivery happen elsewhere.
type Notification struct {
	OrderID        string
	OrderNumber    string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	DeliveryMethod DeliveryMethod
	PaymentMethod  PaymentMethod
	Lines          []NotificationLine
	Subtotal       int64
	TotalDiscount  int64
	Total          int64
}

func buildNotification(o *Order) Notification {
	lines := make([]NotificationLine, len(o.Items))
	for i, item := range o.Items {
		lines[i] = NotificationLine{
			Name:         item.Name,
			SKU:          item.SKU,
			Quantity:     item.Quantity,
			PricePerUnit: item.PricePerUnit,
			Subtotal:     item.Subtotal,
		}
	}
	return Notification{
		OrderID:        o.ID,
		OrderNumber:    o.Number,
		CustomerName:   o.Customer.Name,
		CustomerEmail:  o.Customer.Email,
		CustomerPhone:  o.Customer.Phone,
		DeliveryMethod: o.DeliveryMethod,
		PaymentMethod:  o.PaymentMethod,
		Lines:          lines,
		Subtotal:       o.Subtotal,
		TotalDiscount:  o.TotalDiscount,
		Total:          o.Total,
	}
}
