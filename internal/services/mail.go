package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

const mailJobIDPrefix = "mjb_"

// MailKind selects the email template for a job.
type MailKind string

const (
	// MailKindOrderStatus informs a customer that their order changed status.
	MailKindOrderStatus MailKind = "order.status"
	// MailKindAdminNewOrder informs administrators about a submitted order.
	MailKindAdminNewOrder MailKind = "order.admin_new"
)

// MailJob is a self-contained email request. It is also the Pub/Sub message payload.
type MailJob struct {
	JobID      string    `json:"jobId"`
	Kind       MailKind  `json:"kind"`
	Recipients []string  `json:"recipients"`
	Order      MailOrder `json:"order"`
	QueuedAt   time.Time `json:"queuedAt"`
}

// MailOrder is the order snapshot rendered into emails.
type MailOrder struct {
	ID           string          `json:"id"`
	Number       string          `json:"number"`
	Status       string          `json:"status"`
	CustomerName string          `json:"customerName"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone,omitempty"`
	Address      string          `json:"address"`
	Items        []MailOrderItem `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingFee  decimal.Decimal `json:"shippingFee"`
	Total        decimal.Decimal `json:"total"`
	Notes        string          `json:"notes,omitempty"`
	PlacedAt     time.Time       `json:"placedAt"`
}

// MailOrderItem is one rendered order line.
type MailOrderItem struct {
	Name      string          `json:"name"`
	Variant   string          `json:"variant,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// Validate checks that a job can be rendered and delivered.
func (j MailJob) Validate() error {
	switch j.Kind {
	case MailKindOrderStatus, MailKindAdminNewOrder:
	default:
		return fmt.Errorf("mail job: unknown kind %q", j.Kind)
	}
	if len(j.Recipients) == 0 {
		return errors.New("mail job: at least one recipient is required")
	}
	if strings.TrimSpace(j.Order.Number) == "" {
		return errors.New("mail job: order number is required")
	}
	return nil
}

// NewOrderMailJob snapshots an order into a mail job.
func NewOrderMailJob(kind MailKind, order Order, recipients []string) MailJob {
	items := make([]MailOrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, MailOrderItem{
			Name:      item.ProductName,
			Variant:   item.VariantName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal(),
		})
	}
	addressParts := make([]string, 0, 4)
	for _, part := range []string{order.Customer.Address, order.Customer.City, order.Customer.State, order.Customer.ZipCode} {
		if part = strings.TrimSpace(part); part != "" {
			addressParts = append(addressParts, part)
		}
	}
	return MailJob{
		Kind:       kind,
		Recipients: append([]string(nil), recipients...),
		Order: MailOrder{
			ID:           order.ID,
			Number:       order.OrderNumber,
			Status:       string(order.Status),
			CustomerName: order.Customer.FullName,
			Email:        order.Customer.Email,
			Phone:        order.Customer.Phone,
			Address:      strings.Join(addressParts, ", "),
			Items:        items,
			Subtotal:     order.Subtotal,
			ShippingFee:  order.ShippingFee,
			Total:        order.Total,
			Notes:        order.Notes,
			PlacedAt:     order.CreatedAt,
		},
	}
}

// MailMessage is a rendered email ready for a transport.
type MailMessage struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

// MailSender delivers rendered messages.
type MailSender interface {
	Send(ctx context.Context, msg MailMessage) error
}

// MailJobPublisher enqueues mail jobs for asynchronous delivery.
type MailJobPublisher interface {
	PublishMailJob(ctx context.Context, job MailJob) (string, error)
}

// DirectEmailDispatcher renders and sends each job synchronously.
type DirectEmailDispatcher struct {
	composer *MailComposer
	sender   MailSender
	from     string
}

// NewDirectEmailDispatcher constructs a synchronous dispatcher.
func NewDirectEmailDispatcher(composer *MailComposer, sender MailSender, from string) (*DirectEmailDispatcher, error) {
	if composer == nil {
		return nil, errors.New("direct email dispatcher: composer is required")
	}
	if sender == nil {
		return nil, errors.New("direct email dispatcher: sender is required")
	}
	return &DirectEmailDispatcher{composer: composer, sender: sender, from: strings.TrimSpace(from)}, nil
}

// Dispatch renders the job and hands it to the sender.
func (d *DirectEmailDispatcher) Dispatch(ctx context.Context, job MailJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	msg, err := d.composer.Compose(job)
	if err != nil {
		return err
	}
	msg.From = d.from
	if err := d.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s email for %s: %w", job.Kind, job.Order.Number, err)
	}
	return nil
}

// QueuedEmailDispatcher publishes jobs for a worker to deliver later.
type QueuedEmailDispatcher struct {
	publisher MailJobPublisher
	clock     func() time.Time
	newID     func() string
}

// NewQueuedEmailDispatcher constructs a publisher-backed dispatcher.
func NewQueuedEmailDispatcher(publisher MailJobPublisher, clock func() time.Time) (*QueuedEmailDispatcher, error) {
	if publisher == nil {
		return nil, errors.New("queued email dispatcher: publisher is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &QueuedEmailDispatcher{
		publisher: publisher,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: func() string {
			return mailJobIDPrefix + ulid.Make().String()
		},
	}, nil
}

// Dispatch publishes the job, assigning an id and queue time when unset.
func (d *QueuedEmailDispatcher) Dispatch(ctx context.Context, job MailJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(job.JobID) == "" {
		job.JobID = d.newID()
	}
	if job.QueuedAt.IsZero() {
		job.QueuedAt = d.clock()
	}
	if _, err := d.publisher.PublishMailJob(ctx, job); err != nil {
		return fmt.Errorf("enqueue %s email for %s: %w", job.Kind, job.Order.Number, err)
	}
	return nil
}
