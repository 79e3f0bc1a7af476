package service

import (
	"LinkLoom-Backend/internal/config"
	"LinkLoom-Backend/internal/domain"
	"LinkLoom-Backend/internal/repository"
	"LinkLoom-Backend/internal/safety"
	"LinkLoom-Backend/internal/shortcode"
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// Creation error taxonomy. Handlers map these to response codes; everything
// else is an internal error.
var (
	ErrInvalidDestination  = errors.New("destination url is missing or malformed")
	ErrInvalidSlug         = errors.New("custom slug contains invalid characters")
	ErrSlugTaken           = errors.New("custom slug is already taken")
	ErrGenerationExhausted = errors.New("could not generate a unique code, please retry")
)

// CodeGenerator produces candidate short codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// Shortener owns the creation flow: destination validation, safety verdict,
// code reservation with the generation retry budget, and the insert with its
// duplicate-key recovery.
type Shortener struct {
	storage repository.Storage
	gen     CodeGenerator
	checker safety.Checker
	config  *config.URLShortener
	log     *zap.Logger
}

// NewShortener wires the creation flow.
func NewShortener(storage repository.Storage, gen CodeGenerator, checker safety.Checker, cfg *config.URLShortener, log *zap.Logger) *Shortener {
	return &Shortener{
		storage: storage,
		gen:     gen,
		checker: checker,
		config:  cfg,
		log:     log,
	}
}

// CreateRequest carries the creation-flow input. UserID is nil for anonymous
// creations; the caller has already authorized custom-slug use.
type CreateRequest struct {
	OriginalURL string
	CustomSlug  string
	Title       string
	UserID      *int64
}

// Create validates, reserves a code and persists a new link record, returning
// the stored record with its active code set.
func (s *Shortener) Create(ctx context.Context, req CreateRequest) (*domain.Link, error) {
	if err := validateDestination(req.OriginalURL); err != nil {
		return nil, err
	}

	code, err := s.reserveCode(ctx, req.CustomSlug)
	if err != nil {
		return nil, err
	}

	link := &domain.Link{
		UserID:       req.UserID,
		OriginalURL:  req.OriginalURL,
		VerifiedSafe: s.safetyVerdict(ctx, req.OriginalURL),
	}
	if req.Title != "" {
		link.Title = &req.Title
	}
	link.SetCode(code)

	if err := s.storage.InsertLink(ctx, link); err != nil {
		if !errors.Is(err, repository.ErrDuplicateCode) {
			return nil, fmt.Errorf("failed to save link: %w", err)
		}
		return s.recoverDuplicate(ctx, link, code)
	}

	return link, nil
}

// reserveCode picks the code to insert. The existence check here is only an
// optimization; the storage constraint is what finally guarantees uniqueness.
func (s *Shortener) reserveCode(ctx context.Context, customSlug string) (domain.Code, error) {
	if customSlug != "" {
		if !shortcode.ValidateSlug(customSlug) {
			return domain.Code{}, ErrInvalidSlug
		}
		exists, err := s.storage.CodeExists(ctx, customSlug)
		if err != nil {
			return domain.Code{}, fmt.Errorf("failed to check slug existence: %w", err)
		}
		if exists {
			return domain.Code{}, ErrSlugTaken
		}
		return domain.CustomCode(customSlug), nil
	}

	for attempt := 0; attempt < s.config.MaxGenerationAttempts; attempt++ {
		candidate, err := s.gen.Generate()
		if err != nil {
			return domain.Code{}, fmt.Errorf("failed to generate code: %w", err)
		}
		exists, err := s.storage.CodeExists(ctx, candidate)
		if err != nil {
			return domain.Code{}, fmt.Errorf("failed to check code existence: %w", err)
		}
		if !exists {
			return domain.SystemCode(candidate), nil
		}
	}

	s.log.Warn("generation retry budget exhausted", zap.Int("attempts", s.config.MaxGenerationAttempts))
	return domain.Code{}, ErrGenerationExhausted
}

// recoverDuplicate handles an insert that lost the check-then-insert race.
// A custom slug has no substitute, so the loss surfaces as a conflict; a
// system code is re-derived once and re-inserted.
func (s *Shortener) recoverDuplicate(ctx context.Context, link *domain.Link, code domain.Code) (*domain.Link, error) {
	if code.Origin == domain.CodeOriginCustom {
		return nil, ErrSlugTaken
	}

	s.log.Debug("lost code race, re-deriving", zap.String("code", code.Value))

	fresh, err := s.reserveCode(ctx, "")
	if err != nil {
		return nil, err
	}
	link.SetCode(fresh)

	if err := s.storage.InsertLink(ctx, link); err != nil {
		if errors.Is(err, repository.ErrDuplicateCode) {
			return nil, ErrGenerationExhausted
		}
		return nil, fmt.Errorf("failed to save link: %w", err)
	}
	return link, nil
}

// safetyVerdict asks the verification collaborator for a classification. The
// creation flow proceeds whatever the answer; an error only downgrades the
// record to unverified.
func (s *Shortener) safetyVerdict(ctx context.Context, destination string) bool {
	safe, err := s.checker.Verify(ctx, destination)
	if err != nil {
		s.log.Warn("safety verification failed, storing unverified", zap.Error(err))
		return false
	}
	return safe
}

// validateDestination requires a well-formed absolute http(s) URL.
func validateDestination(destination string) error {
	if destination == "" {
		return ErrInvalidDestination
	}
	u, err := url.Parse(destination)
	if err != nil {
		return ErrInvalidDestination
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidDestination
	}
	return nil
}
