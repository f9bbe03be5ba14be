// Package services – CheckoutService
//
// CheckoutService is the write path of the point of sale. A checkout goes
// straight to the server when the device is online; when it is offline, or
// the attempt fails in a way a later retry could fix, the sale is parked in
// the offline queue and replayed by the syncer through Submit.
package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-pos-client/internal/apiclient"
	"github.com/tbourn/go-pos-client/internal/domain"
)

// SaleAPI submits sales to the server.
type SaleAPI interface {
	CreateSale(ctx context.Context, req domain.SaleRequest) (*domain.Sale, error)
}

// SaleQueue parks sales for later replay.
type SaleQueue interface {
	Enqueue(ctx context.Context, req domain.SaleRequest) (string, error)
}

// OnlineChecker reports connectivity.
type OnlineChecker interface {
	IsOnline() bool
}

// CheckoutResult is the outcome of a successful Checkout: either the server
// sale, or the local id of the queued transaction.
type CheckoutResult struct {
	Sale    *domain.Sale `json:"sale,omitempty"`
	Queued  bool         `json:"queued"`
	LocalID string       `json:"localId,omitempty"`
}

// CheckoutService submits sales, falling back to the offline queue.
type CheckoutService struct {
	API    SaleAPI
	Queue  SaleQueue
	Online OnlineChecker
	// Coordinator, when set, refreshes read models after a live sale.
	Coordinator *Coordinator

	// CustomerNameMaxLen caps stored customer names by rune length.
	CustomerNameMaxLen int
	// TitleCaseNames title-cases customer names; off, names keep the
	// cashier's spelling.
	TitleCaseNames bool
	// NameLocale drives title casing of customer names.
	NameLocale language.Tag

	log     zerolog.Logger
	refresh sync.WaitGroup
}

// NewCheckoutService constructs a CheckoutService with default name handling.
func NewCheckoutService(api SaleAPI, q SaleQueue, online OnlineChecker, coord *Coordinator) *CheckoutService {
	return &CheckoutService{
		API:                api,
		Queue:              q,
		Online:             online,
		Coordinator:        coord,
		CustomerNameMaxLen: 80,
		NameLocale:         language.Und,
		log:                log.With().Str("component", "checkout").Logger(),
	}
}

// Submit is the one submission path for live and replayed sales.
func (s *CheckoutService) Submit(ctx context.Context, req domain.SaleRequest) (*domain.Sale, error) {
	return s.API.CreateSale(ctx, req)
}

// Checkout validates req and submits or queues it.
//
// Errors:
//   - ErrEmptyCart, ErrInvalidQuantity, ErrInvalidPrice on bad input
//   - the server's rejection (*apiclient.APIError) for permanent failures
//   - a wrapped apiclient.ErrUnauthorized when the session is gone
//   - a wrapped queue error when the sale could not be persisted offline
func (s *CheckoutService) Checkout(ctx context.Context, req domain.SaleRequest) (CheckoutResult, error) {
	tr := otel.Tracer("services/CheckoutService")
	ctx, span := tr.Start(ctx, "Checkout",
		trace.WithAttributes(attribute.Int("sale.items", len(req.Items))),
	)
	defer span.End()

	if err := validateSale(req); err != nil {
		checkoutsTotal.WithLabelValues("rejected").Inc()
		return CheckoutResult{}, err
	}
	req.CustomerName = s.normalizeName(req.CustomerName)

	if !s.Online.IsOnline() {
		span.SetAttributes(attribute.String("checkout.path", "offline"))
		return s.enqueue(ctx, req, nil)
	}

	sale, err := s.Submit(ctx, req)
	if err == nil {
		span.SetAttributes(attribute.String("checkout.path", "online"))
		checkoutsTotal.WithLabelValues("submitted").Inc()
		s.refreshReadModels(ctx)
		return CheckoutResult{Sale: sale}, nil
	}

	switch apiclient.Classify(err) {
	case apiclient.FailureTransient:
		span.SetAttributes(attribute.String("checkout.path", "fallback"))
		return s.enqueue(ctx, req, err)
	default:
		checkoutsTotal.WithLabelValues("rejected").Inc()
		s.log.Warn().Err(err).Msg("checkout rejected")
		return CheckoutResult{}, err
	}
}

// refreshReadModels reloads what a sale changed without holding up the
// cashier. It outlives the request.
func (s *CheckoutService) refreshReadModels(ctx context.Context) {
	if s.Coordinator == nil {
		return
	}
	s.refresh.Add(1)
	go func() {
		defer s.refresh.Done()
		s.Coordinator.OnSaleCreated(context.WithoutCancel(ctx))
	}()
}

// Wait blocks until read-model refreshes started by Checkout are done.
func (s *CheckoutService) Wait() { s.refresh.Wait() }

func (s *CheckoutService) enqueue(ctx context.Context, req domain.SaleRequest, cause error) (CheckoutResult, error) {
	id, err := s.Queue.Enqueue(ctx, req)
	if err != nil {
		s.log.Error().Err(err).AnErr("cause", cause).Msg("could not queue sale")
		if cause != nil {
			return CheckoutResult{}, fmt.Errorf("%w after %v: %w", ErrQueueFailed, cause, err)
		}
		return CheckoutResult{}, fmt.Errorf("%w: %w", ErrQueueFailed, err)
	}
	checkoutsTotal.WithLabelValues("queued").Inc()
	if cause != nil {
		s.log.Info().Err(cause).Str("local_id", id).Msg("submit failed; sale queued")
	}
	return CheckoutResult{Queued: true, LocalID: id}, nil
}

func validateSale(req domain.SaleRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyCart
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if it.UnitPrice.IsNegative() {
			return ErrInvalidPrice
		}
	}
	return nil
}

// normalizeName trims, collapses whitespace and clips. Title casing is opt-in.
func (s *CheckoutService) normalizeName(name string) string {
	name = whitespaceRE.ReplaceAllString(strings.TrimSpace(name), " ")
	if name == "" {
		return ""
	}
	if s.TitleCaseNames {
		name = cases.Title(s.nameLocaleOrDefault(), cases.NoLower).String(name)
	}
	if s.CustomerNameMaxLen > 0 && utf8.RuneCountInString(name) > s.CustomerNameMaxLen {
		name = string([]rune(name)[:s.CustomerNameMaxLen])
	}
	return name
}

func (s *CheckoutService) nameLocaleOrDefault() language.Tag {
	if s.NameLocale == language.Und {
		return language.English
	}
	return s.NameLocale
}

// whitespaceRE matches runs of whitespace.
var whitespaceRE = regexp.MustCompile(`\s+`)
