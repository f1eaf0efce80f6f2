package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/linkly/url-shortener/internal/entity"
	"github.com/linkly/url-shortener/internal/shortcode"
)

// maxGenerateAttempts bounds how many generated codes CreateLink tries
// before reporting the collision to the caller.
const maxGenerateAttempts = 5

type linkRepository interface {
	Save(ctx context.Context, link *entity.Link) (*entity.Link, error)
	List(ctx context.Context, search string) ([]entity.Link, error)
	RetrieveByCode(ctx context.Context, code string) (*entity.Link, error)
	IncrementClicks(ctx context.Context, code string, at time.Time) (*entity.Link, error)
	Remove(ctx context.Context, code string) error
}

// GenerateFunc produces a candidate short code.
type GenerateFunc func() (string, error)

// ClockFunc returns the current time.
type ClockFunc func() time.Time

type LinkUseCase struct {
	linkRepo linkRepository
	generate GenerateFunc
	now      ClockFunc
}

type Option func(*LinkUseCase)

func WithGenerator(generate GenerateFunc) Option {
	return func(uc *LinkUseCase) {
		uc.generate = generate
	}
}

func WithClock(now ClockFunc) Option {
	return func(uc *LinkUseCase) {
		uc.now = now
	}
}

func New(linkRepo linkRepository, opts ...Option) *LinkUseCase {
	uc := &LinkUseCase{
		linkRepo: linkRepo,
		generate: shortcode.Generate,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

func (uc *LinkUseCase) timestamp() time.Time {
	return uc.now().UTC().Truncate(time.Microsecond)
}

func (uc *LinkUseCase) CreateLink(ctx context.Context, targetURL, customCode string) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.CreateLink"

	switch {
	case targetURL == "":
		return nil, fmt.Errorf("%s: %w", op, entity.ErrTargetURLRequired)
	case !shortcode.IsValidURL(targetURL):
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidURL)
	case customCode != "" && !shortcode.IsValidCode(customCode):
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidCode)
	}

	if customCode != "" {
		link, err := uc.save(ctx, customCode, targetURL)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to save link: %w", op, err)
		}

		return link, nil
	}

	for i := 0; i < maxGenerateAttempts; i++ {
		code, err := uc.generate()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate code: %w", op, err)
		}

		link, err := uc.save(ctx, code, targetURL)
		if err != nil {
			if errors.Is(err, entity.ErrCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to save link: %w", op, err)
		}

		return link, nil
	}

	return nil, fmt.Errorf("%s: no free code after %d attempts: %w", op, maxGenerateAttempts, entity.ErrCodeExists)
}

func (uc *LinkUseCase) save(ctx context.Context, code, targetURL string) (*entity.Link, error) {
	now := uc.timestamp()

	return uc.linkRepo.Save(ctx, &entity.Link{
		ID:        uuid.New(),
		Code:      code,
		TargetURL: targetURL,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// ListLinks returns links newest first. A non-empty search keeps only links
// whose code or target URL contains it, ignoring case.
func (uc *LinkUseCase) ListLinks(ctx context.Context, search string) ([]entity.Link, error) {
	const op = "usecase.LinkUseCase.ListLinks"

	links, err := uc.linkRepo.List(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list links: %w", op, err)
	}

	return links, nil
}

func (uc *LinkUseCase) GetLinkStats(ctx context.Context, code string) (*entity.Link, error) {
	const op = "usecase.LinkUseCase.GetLinkStats"

	link, err := uc.linkRepo.RetrieveByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get link stats: %w", op, err)
	}

	return link, nil
}

func (uc *LinkUseCase) DeleteLink(ctx context.Context, code string) error {
	const op = "usecase.LinkUseCase.DeleteLink"

	if err := uc.linkRepo.Remove(ctx, code); err != nil {
		return fmt.Errorf("%s: failed to delete link: %w", op, err)
	}

	return nil
}

// RedirectAndCount records a click on the link and returns its target URL.
func (uc *LinkUseCase) RedirectAndCount(ctx context.Context, code string) (string, error) {
	const op = "usecase.LinkUseCase.RedirectAndCount"

	link, err := uc.linkRepo.IncrementClicks(ctx, code, uc.timestamp())
	if err != nil {
		return "", fmt.Errorf("%s: failed to count click: %w", op, err)
	}

	return link.TargetURL, nil
}
