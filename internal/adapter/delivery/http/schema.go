package http

import (
	"time"

	"github.com/samber/lo"

	"github.com/linkly/url-shortener/internal/entity"
)

// createLinkRequest is the body of POST /api/links.
type createLinkRequest struct {
	TargetURL  string `json:"targetUrl" validate:"required,targeturl"`
	CustomCode string `json:"customCode" validate:"omitempty,shortcode"`
}

// linkResponse is the JSON form of a link.
type linkResponse struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	TargetURL     string     `json:"targetUrl"`
	Clicks        int64      `json:"clicks"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	LastClickedAt *time.Time `json:"lastClickedAt"`
}

func toLinkResponse(link *entity.Link) linkResponse {
	return linkResponse{
		ID:            link.ID.String(),
		Code:          link.Code,
		TargetURL:     link.TargetURL,
		Clicks:        link.Clicks,
		CreatedAt:     link.CreatedAt,
		UpdatedAt:     link.UpdatedAt,
		LastClickedAt: link.LastClickedAt,
	}
}

func toLinkResponses(links []entity.Link) []linkResponse {
	return lo.Map(links, func(link entity.Link, _ int) linkResponse {
		return toLinkResponse(&link)
	})
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	OK      bool    `json:"ok"`
	Version string  `json:"version"`
	Uptime  float64 `json:"uptime"`
}
