/**
 * @description
 * This file defines the internal events published to RabbitMQ through the
 * transactional outbox. Email sends are out-of-band: the purchase
 * transaction enqueues the event and the dispatcher publishes it after
 * commit, so a failed email can never roll back a completed payment.
 */
package domain

import (
	"encoding/json"
	"time"
)

// Exchange and routing keys for email events.
const (
	EmailExchange           = "email_events"
	RoutingKeyVerification  = "email.verification"
	RoutingKeyDomainWelcome = "email.domain_welcome"
)

// Outbox row statuses.
const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessing = "processing"
	OutboxStatusPublished  = "published"
)

// VerificationEmailRequested asks the mailer to send the signed
// verification link for a package purchase.
type VerificationEmailRequested struct {
	Email           string `json:"email"`
	FullName        string `json:"full_name"`
	Username        string `json:"username"`
	VerificationURL string `json:"verification_url"`
}

// DomainWelcomeEmailRequested asks the mailer to send the post-registration
// welcome email for a domain rental.
type DomainWelcomeEmailRequested struct {
	Email         string `json:"email"`
	FullName      string `json:"full_name"`
	Username      string `json:"username"`
	DomainName    string `json:"domain_name"`
	AffiliateLink string `json:"affiliate_link"`
}

// OutboxMessage is one row of the email outbox.
type OutboxMessage struct {
	ID            int64
	Exchange      string
	RoutingKey    string
	Payload       json.RawMessage
	Status        string
	Attempts      int
	NextAttemptAt time.Time
	CreatedAt     time.Time
}

// NewOutboxMessage marshals an event payload for enqueueing. Marshal errors
// are programming errors (all payload types above are marshalable), so this
// panics rather than returning an error the caller cannot act on.
func NewOutboxMessage(exchange, routingKey string, payload any) OutboxMessage {
	body, err := json.Marshal(payload)
	if err != nil {
		panic("outbox payload not marshalable: " + err.Error())
	}
	return OutboxMessage{Exchange: exchange, RoutingKey: routingKey, Payload: body}
}
