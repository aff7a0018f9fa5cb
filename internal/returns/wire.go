package returns

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/returns-engine/internal/exchanges"
	"github.com/angelmondragon/returns-engine/internal/inventory"
	"github.com/angelmondragon/returns-engine/internal/notifications"
	"github.com/angelmondragon/returns-engine/internal/orders"
	"github.com/angelmondragon/returns-engine/internal/policy"
	"github.com/angelmondragon/returns-engine/internal/shipping"
	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/db"
	"github.com/angelmondragon/returns-engine/pkg/logger"
	"github.com/angelmondragon/returns-engine/pkg/metrics"
	"github.com/angelmondragon/returns-engine/pkg/outbox"
)

// Wire builds the lifecycle manager and its collaborators on one connection.
// reg may be nil, in which case return metrics are not exported.
func Wire(conn *gorm.DB, cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer) (*Service, error) {
	if conn == nil || cfg == nil || logg == nil {
		return nil, fmt.Errorf("connection, config and logger required")
	}

	orderSvc, err := orders.NewService(orders.NewRepository(conn), logg)
	if err != nil {
		return nil, fmt.Errorf("order service: %w", err)
	}
	inv := inventory.NewService(logg)
	publisher := outbox.NewService(outbox.NewRepository(conn), logg)

	orchestrator, err := exchanges.NewOrchestrator(exchanges.Params{
		Repository: exchanges.NewRepository(conn),
		Inventory:  inv,
		Orders:     orderSvc,
		Outbox:     publisher,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange orchestrator: %w", err)
	}

	var email notifications.Channel
	if cfg.FeatureFlags.EmailNotifications {
		email, err = notifications.NewSMTPChannel(cfg.SMTP)
		if err != nil {
			return nil, err
		}
	}
	dispatcher, err := notifications.NewDispatcher(logg, email)
	if err != nil {
		return nil, fmt.Errorf("notification dispatcher: %w", err)
	}

	return NewService(ServiceParams{
		Repository:   NewRepository(conn),
		Tx:           db.NewFromConn(conn),
		Outbox:       publisher,
		Inventory:    inv,
		Orders:       orderSvc,
		Exchanges:    orchestrator,
		Policies:     policy.NewStore(conn),
		Fees:         shipping.NewCalculator(cfg.Shipping),
		Notifier:     dispatcher,
		Metrics:      metrics.NewReturnMetrics(reg),
		Logger:       logg,
		ReturnWindow: time.Duration(cfg.Returns.WindowDays) * 24 * time.Hour,
	})
}
