// internal/services/notification_service.go
package services

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/civicledger/IPRx-Core/internal/events"
	"github.com/civicledger/IPRx-Core/internal/metrics"
	"github.com/civicledger/IPRx-Core/internal/models"
)

// NotificationService announces committed order changes. Delivery is best
// effort: a failed publish is logged and counted, never returned.
type NotificationService struct {
	publisher events.Publisher
	metrics   *metrics.Registry
}

func NewNotificationService(publisher events.Publisher, m *metrics.Registry) *NotificationService {
	if publisher == nil {
		publisher = events.NewLogPublisher(nil)
	}
	return &NotificationService{
		publisher: publisher,
		metrics:   m,
	}
}

func (s *NotificationService) OrderSubmitted(ctx context.Context, order *models.Order) {
	s.publish(ctx, events.OrderSubmitted, order, order.SubmittedBy)
}

func (s *NotificationService) OrderDecided(ctx context.Context, order *models.Order) {
	eventType := events.OrderApproved
	if order.Status == models.OrderStatusRejected {
		eventType = events.OrderRejected
	}
	s.publish(ctx, eventType, order, order.DecidedBy)
}

func (s *NotificationService) Close() error {
	return s.publisher.Close()
}

func (s *NotificationService) publish(ctx context.Context, eventType events.Type, order *models.Order, actor common.Address) {
	event := events.OrderEvent{
		Type:        eventType,
		Marketplace: order.MarketplaceAddress,
		OrderIndex:  order.OrderIndex,
		OrderHash:   order.Hash,
		OrderTaker:  order.OrderTakerAddress,
		Nonce:       order.Nonce.String(),
		Status:      uint8(order.Status),
		Actor:       actor,
		OccurredAt:  time.Now().UTC(),
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"event":       eventType,
			"marketplace": order.MarketplaceAddress.Hex(),
			"order_index": order.OrderIndex,
		}).Warn("Failed to publish order event")
		if s.metrics != nil {
			s.metrics.EventsFailed.Inc()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.EventsPublished.Inc()
	}
}
