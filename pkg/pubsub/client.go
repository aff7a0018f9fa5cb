package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/logger"
)

// Role decides which resources a process needs before it can start.
type Role int

const (
	// RolePublisher needs the returns topic.
	RolePublisher Role = iota + 1
	// RoleSubscriber needs the notification subscription.
	RoleSubscriber
)

func (r Role) String() string {
	switch r {
	case RolePublisher:
		return "publisher"
	case RoleSubscriber:
		return "subscriber"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

type resourceKind string

const (
	kindTopic        resourceKind = "topics"
	kindSubscription resourceKind = "subscriptions"
)

type resource struct {
	kind resourceKind
	name string
}

// Client wraps the Pub/Sub v2 client with the topic and subscription names
// this deployment uses.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	required  []resource
}

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNothingRequired   = errors.New("pubsub role requires at least one configured resource")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// NewClient dials Pub/Sub and fails fast when a resource the role depends on
// is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, role Role, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	required, err := requiredResources(cfg, role)
	if err != nil {
		return nil, err
	}

	psClient, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: psClient, projectID: projectID, cfg: cfg, required: required}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"role":      role.String(),
			"resources": len(required),
		}), "pubsub client initialized")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	default:
		return nil
	}
}

func requiredResources(cfg config.PubSubConfig, role Role) ([]resource, error) {
	var out []resource
	add := func(kind resourceKind, name string) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			out = append(out, resource{kind: kind, name: trimmed})
		}
	}
	switch role {
	case RolePublisher:
		add(kindTopic, cfg.ReturnsTopic)
	case RoleSubscriber:
		add(kindSubscription, cfg.NotificationSubscription)
	default:
		return nil, fmt.Errorf("unknown pubsub role %s", role)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", role, errNothingRequired)
	}
	return out, nil
}

// Ping confirms every resource the role depends on still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	for _, r := range c.required {
		if err := c.exists(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) exists(ctx context.Context, r resource) error {
	full := c.resourceName(r.kind, r.name)
	var err error
	switch r.kind {
	case kindTopic:
		_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	case kindSubscription:
		_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
	}
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %q does not exist", strings.TrimSuffix(string(r.kind), "s"), full)
	}
	return fmt.Errorf("checking %s: %w", full, err)
}

// Subscription returns a subscriber for an ID or a full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.resourceName(kindSubscription, name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

// NotificationSubscription feeds the in-app notification consumer.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.NotificationSubscription)
}

// Publisher returns a publisher for an ID or a full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.resourceName(kindTopic, name)
	if full == "" {
		return nil
	}
	return c.client.Publisher(full)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName qualifies a short ID with the project. Names that are already
// qualified for the same kind pass through untouched.
func (c *Client) resourceName(kind resourceKind, name string) string {
	if c == nil {
		return ""
	}
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+string(kind)+"/") {
		return n
	}
	if c.projectID == "" {
		return ""
	}
	return "projects/" + c.projectID + "/" + string(kind) + "/" + n
}
