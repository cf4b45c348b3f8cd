package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	domain "github.com/baovptse192440/NongSanProject-sub002/internal/domain"
)

type captureSender struct {
	err      error
	messages []MailMessage
}

func (c *captureSender) Send(_ context.Context, msg MailMessage) error {
	c.messages = append(c.messages, msg)
	return c.err
}

type capturePublisher struct {
	err  error
	jobs []MailJob
}

func (c *capturePublisher) PublishMailJob(_ context.Context, job MailJob) (string, error) {
	c.jobs = append(c.jobs, job)
	if c.err != nil {
		return "", c.err
	}
	return "msg-1", nil
}

func sampleMailJob(kind MailKind, status domain.OrderStatus) MailJob {
	order := pendingOrder(status)
	order.Customer.FullName = "Tran <b>B</b>"
	order.Customer.Address = "1 Tran Phu"
	order.Customer.City = "Hue"
	order.ShippingFee = decimal.NewFromInt(5)
	order.CreatedAt = orderTestNow
	return NewOrderMailJob(kind, order, []string{"a@example.com"})
}

func TestNewOrderMailJobSnapshotsOrder(t *testing.T) {
	job := sampleMailJob(MailKindOrderStatus, domain.OrderStatusShipped)

	require.Equal(t, "OD12345678001", job.Order.Number)
	require.Equal(t, "shipped", job.Order.Status)
	require.Equal(t, "1 Tran Phu, Hue", job.Order.Address)
	require.Len(t, job.Order.Items, 1)
	require.True(t, job.Order.Items[0].LineTotal.Equal(decimal.NewFromInt(20)))
	require.NoError(t, job.Validate())
}

func TestMailJobValidate(t *testing.T) {
	job := sampleMailJob(MailKindOrderStatus, domain.OrderStatusShipped)

	bad := job
	bad.Kind = "newsletter"
	require.Error(t, bad.Validate())

	bad = job
	bad.Recipients = nil
	require.Error(t, bad.Validate())

	bad = job
	bad.Order.Number = ""
	require.Error(t, bad.Validate())
}

func TestMailComposerRendersStatusEmail(t *testing.T) {
	composer, err := NewMailComposer("NongSan", MoneyFormatter{})
	require.NoError(t, err)

	msg, err := composer.Compose(sampleMailJob(MailKindOrderStatus, domain.OrderStatusDelivered))
	require.NoError(t, err)

	require.Equal(t, "[NongSan] Order delivered - OD12345678001", msg.Subject)
	require.Equal(t, []string{"a@example.com"}, msg.To)
	require.Contains(t, msg.HTML, "has been delivered")
	require.Contains(t, msg.HTML, "Tran &lt;b&gt;B&lt;/b&gt;")
	require.NotContains(t, msg.HTML, "<b>B</b>")
	require.Contains(t, msg.Text, "Total: 25.00")
	require.Contains(t, msg.Text, "- Rice x2: 20.00")
}

func TestMailComposerRendersAdminEmail(t *testing.T) {
	composer, err := NewMailComposer("", MoneyFormatter{})
	require.NoError(t, err)

	msg, err := composer.Compose(sampleMailJob(MailKindAdminNewOrder, domain.OrderStatusPending))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(msg.Subject, "[Store] New order"))
	require.Contains(t, msg.Text, "for 25.00")
}

func TestNewMoneyFormatterRejectsBadInput(t *testing.T) {
	_, err := NewMoneyFormatter("not a locale!", "VND")
	require.Error(t, err)

	_, err = NewMoneyFormatter("vi", "DONG")
	require.Error(t, err)

	formatter, err := NewMoneyFormatter("en", "usd")
	require.NoError(t, err)
	require.NotEmpty(t, formatter.Format(decimal.NewFromFloat(12.5)))
}

func TestDirectEmailDispatcher(t *testing.T) {
	composer, err := NewMailComposer("NongSan", MoneyFormatter{})
	require.NoError(t, err)
	sender := &captureSender{}

	dispatcher, err := NewDirectEmailDispatcher(composer, sender, "shop@example.com")
	require.NoError(t, err)

	require.NoError(t, dispatcher.Dispatch(context.Background(), sampleMailJob(MailKindOrderStatus, domain.OrderStatusConfirmed)))
	require.Len(t, sender.messages, 1)
	require.Equal(t, "shop@example.com", sender.messages[0].From)

	sender.err = errors.New("connection refused")
	err = dispatcher.Dispatch(context.Background(), sampleMailJob(MailKindOrderStatus, domain.OrderStatusConfirmed))
	require.ErrorIs(t, err, sender.err)

	invalid := sampleMailJob(MailKindOrderStatus, domain.OrderStatusConfirmed)
	invalid.Recipients = nil
	require.Error(t, dispatcher.Dispatch(context.Background(), invalid))
	require.Len(t, sender.messages, 2)
}

func TestQueuedEmailDispatcherAssignsJobMetadata(t *testing.T) {
	publisher := &capturePublisher{}
	dispatcher, err := NewQueuedEmailDispatcher(publisher, func() time.Time { return orderTestNow })
	require.NoError(t, err)

	require.NoError(t, dispatcher.Dispatch(context.Background(), sampleMailJob(MailKindAdminNewOrder, domain.OrderStatusPending)))
	require.Len(t, publisher.jobs, 1)
	job := publisher.jobs[0]
	require.True(t, strings.HasPrefix(job.JobID, mailJobIDPrefix))
	require.True(t, job.QueuedAt.Equal(orderTestNow))

	publisher.err = errors.New("topic not found")
	err = dispatcher.Dispatch(context.Background(), sampleMailJob(MailKindAdminNewOrder, domain.OrderStatusPending))
	require.ErrorIs(t, err, publisher.err)
}

func TestEmailDispatcherConstructorsRequireDependencies(t *testing.T) {
	_, err := NewDirectEmailDispatcher(nil, &captureSender{}, "")
	require.Error(t, err)

	composer, err := NewMailComposer("NongSan", MoneyFormatter{})
	require.NoError(t, err)
	_, err = NewDirectEmailDispatcher(composer, nil, "")
	require.Error(t, err)

	_, err = NewQueuedEmailDispatcher(nil, nil)
	require.Error(t, err)
}
