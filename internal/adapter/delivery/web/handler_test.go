package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/linkly/url-shortener/internal/client"
	"github.com/linkly/url-shortener/internal/session"
)

type mockLinkClient struct {
	mock.Mock
}

func (m *mockLinkClient) ListLinks(ctx context.Context, search string) ([]client.Link, error) {
	args := m.Called(ctx, search)
	if l := args.Get(0); l != nil {
		return l.([]client.Link), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLinkClient) CreateLink(ctx context.Context, targetURL, customCode string) (*client.Link, error) {
	args := m.Called(ctx, targetURL, customCode)
	if l := args.Get(0); l != nil {
		return l.(*client.Link), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLinkClient) GetLinkStats(ctx context.Context, code string) (*client.Link, error) {
	args := m.Called(ctx, code)
	if l := args.Get(0); l != nil {
		return l.(*client.Link), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLinkClient) DeleteLink(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *mockLinkClient) RedirectURL(code string) (string, error) {
	args := m.Called(code)
	return args.String(0), args.Error(1)
}

type WebTestSuite struct {
	suite.Suite
	errUnknown     error
	logger         *httplog.Logger
	link           client.Link
	linkClientMock *mockLinkClient
	server         *httptest.Server
	e              *httpexpect.Expect
}

func (suite *WebTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	suite.link = client.Link{
		ID:        "4b0c7a4e-4f0e-4f55-9f3e-6f1d2f0f4f10",
		Code:      "abc123",
		TargetURL: "https://example.com/some/page",
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func (suite *WebTestSuite) SetupSubTest() {
	suite.linkClientMock = new(mockLinkClient)

	router, err := NewRouter(
		RouterConfig{Version: "test", StartedAt: time.Now()},
		suite.logger,
		suite.linkClientMock,
		session.NewStore(time.Hour),
	)
	suite.Require().NoError(err)

	suite.server = httptest.NewServer(router)
	suite.T().Cleanup(suite.server.Close)

	jar, err := cookiejar.New(nil)
	suite.Require().NoError(err)

	suite.e = httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  suite.server.URL,
		Reporter: httpexpect.NewAssertReporter(suite.T()),
		Client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	})
}

func (suite *WebTestSuite) TearDownSubTest() {
	suite.linkClientMock.AssertExpectations(suite.T())
}

func (suite *WebTestSuite) TestHealth() {
	suite.Run("success", func() {
		suite.e.GET("/healthz").
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			HasValue("ok", true).
			HasValue("version", "test")
	})
}

func (suite *WebTestSuite) TestDashboard() {
	suite.Run("links", func() {
		clicked := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
		clickedLink := suite.link
		clickedLink.Code = "xyz789"
		clickedLink.Clicks = 2
		clickedLink.LastClickedAt = &clicked

		suite.linkClientMock.
			On("ListLinks", mock.Anything, "").
			Once().
			Return([]client.Link{clickedLink, suite.link}, nil)

		body := suite.e.GET("/").
			Expect().
			Status(http.StatusOK).
			ContentType("text/html").
			Body()

		body.Contains("xyz789").
			Contains("abc123").
			Contains("2024-05-02 08:30:00 UTC").
			Contains("Never").
			Contains(`href="/code/abc123"`).
			Contains(`action="/links/abc123/delete"`)
	})

	suite.Run("search", func() {
		suite.linkClientMock.
			On("ListLinks", mock.Anything, "exa").
			Once().
			Return([]client.Link{}, nil)

		suite.e.GET("/").
			WithQuery("search", " exa ").
			Expect().
			Status(http.StatusOK).
			Body().
			Contains("No links found").
			Contains("Try a different search term")
	})

	suite.Run("empty", func() {
		suite.linkClientMock.
			On("ListLinks", mock.Anything, "").
			Once().
			Return(nil, nil)

		suite.e.GET("/").
			Expect().
			Status(http.StatusOK).
			Body().
			Contains("Get started by creating a new short link")
	})

	suite.Run("list error", func() {
		suite.linkClientMock.
			On("ListLinks", mock.Anything, "").
			Once().
			Return(nil, suite.errUnknown)

		suite.e.GET("/").
			Expect().
			Status(http.StatusOK).
			Body().
			Contains("Failed to fetch links. Please try again.").
			Contains("Retry").
			NotContains("No links found")
	})
}

func (suite *WebTestSuite) TestCreateLink() {
	suite.Run("success sets flash once", func() {
		suite.linkClientMock.
			On("CreateLink", mock.Anything, "https://example.com", "mycode").
			Once().
			Return(&suite.link, nil)
		suite.linkClientMock.
			On("ListLinks", mock.Anything, "").
			Twice().
			Return([]client.Link{suite.link}, nil)

		suite.e.POST("/links").
			WithFormField("targetUrl", " https://example.com ").
			WithFormField("customCode", "mycode").
			Expect().
			Status(http.StatusSeeOther).
			Header("Location").IsEqual("/")

		suite.e.GET("/").
			Expect().
			Status(http.StatusOK).
			Body().Contains("Link created successfully!")

		suite.e.GET("/").
			Expect().
			Status(http.StatusOK).
			Body().NotContains("Link created successfully!")
	})

	suite.Run("code exists", func() {
		suite.linkClientMock.
			On("CreateLink", mock.Anything, "https://example.com", "mycode").
			Once().
			Return(nil, fmt.Errorf("wrapped: %w", &client.APIError{StatusCode: http.StatusConflict, Message: "conflict"}))
		suite.linkClientMock.
			On("ListLinks", mock.Anything, "").
			Once().
			Return([]client.Link{}, nil)

		suite.e.POST("/links").
			WithFormField("targetUrl", "https://example.com").
			WithFormField("customCode", "mycode").
			Expect().
			Status(http.StatusConflict).
			Body().
			Contains("Code already exists. Please choose a different code.").
			Contains(`value="mycode"`)
	})

	suite.Run("api message", func() {
		suite.linkClientMock.
			On("CreateLink", mock.Anything, "not-a-url", "").
			Once().
			Return(nil, &client.APIError{StatusCode: http.StatusBadRequest, Message: "Invalid URL format"})
		suite.linkClientMock.
			On("ListLinks", mock.Anything, "").
			Once().
			Return([]client.Link{}, nil)

		suite.e.POST("/links").
			WithFormField("targetUrl", "not-a-url").
			Expect().
			Status(http.StatusBadRequest).
			Body().Contains("Invalid URL format")
	})

	suite.Run("unreachable", func() {
		suite.linkClientMock.
			On("CreateLink", mock.Anything, "https://example.com", "").
			Once().
			Return(nil, fmt.Errorf("%w: connection refused", client.ErrUnreachable))
		suite.linkClientMock.
			On("ListLinks", mock.Anything, "").
			Once().
			Return(nil, fmt.Errorf("%w: connection refused", client.ErrUnreachable))

		suite.e.POST("/links").
			WithFormField("targetUrl", "https://example.com").
			Expect().
			Status(http.StatusBadGateway).
			Body().
			Contains("Cannot connect to server. Please check if the backend is running.").
			Contains("Failed to fetch links. Please try again.")
	})

	suite.Run("unknown error", func() {
		suite.linkClientMock.
			On("CreateLink", mock.Anything, "https://example.com", "").
			Once().
			Return(nil, suite.errUnknown)
		suite.linkClientMock.
			On("ListLinks", mock.Anything, "").
			Once().
			Return([]client.Link{}, nil)

		suite.e.POST("/links").
			WithFormField("targetUrl", "https://example.com").
			Expect().
			Status(http.StatusBadGateway).
			Body().Contains("Failed to create link: Please try again.")
	})
}

func (suite *WebTestSuite) TestDeleteLink() {
	suite.Run("success", func() {
		suite.linkClientMock.
			On("DeleteLink", mock.Anything, "abc123").
			Once().
			Return(nil)
		suite.linkClientMock.
			On("ListLinks", mock.Anything, "").
			Once().
			Return([]client.Link{}, nil)

		suite.e.POST("/links/abc123/delete").
			Expect().
			Status(http.StatusSeeOther).
			Header("Location").IsEqual("/")

		suite.e.GET("/").
			Expect().
			Status(http.StatusOK).
			Body().Contains("Link deleted successfully!")
	})

	suite.Run("failure", func() {
		suite.linkClientMock.
			On("DeleteLink", mock.Anything, "abc123").
			Once().
			Return(&client.APIError{StatusCode: http.StatusNotFound, Message: "Link not found"})

		suite.e.POST("/links/abc123/delete").
			Expect().
			Status(http.StatusNotFound).
			Body().
			Contains("Failed to delete link. Please try again.").
			Contains("Back to Dashboard")
	})
}

func (suite *WebTestSuite) TestStats() {
	suite.Run("success", func() {
		link := suite.link
		link.Clicks = 7

		suite.linkClientMock.
			On("GetLinkStats", mock.Anything, "abc123").
			Once().
			Return(&link, nil)

		suite.e.GET("/code/abc123").
			Expect().
			Status(http.StatusOK).
			Body().
			Contains("Link Statistics").
			Contains(`<strong id="clicks">7</strong>`).
			Contains(`<p id="last-clicked">Never</p>`).
			Contains(suite.server.URL + "/abc123").
			Contains("https://example.com/some/page").
			Contains("2024-05-01 12:00:00 UTC")
	})

	suite.Run("not found", func() {
		suite.linkClientMock.
			On("GetLinkStats", mock.Anything, "nosuch").
			Once().
			Return(nil, &client.APIError{StatusCode: http.StatusNotFound, Message: "Link not found"})

		suite.e.GET("/code/nosuch").
			Expect().
			Status(http.StatusNotFound).
			Body().
			Contains("Link not found").
			NotContains("Try again")
	})

	suite.Run("error", func() {
		suite.linkClientMock.
			On("GetLinkStats", mock.Anything, "abc123").
			Once().
			Return(nil, suite.errUnknown)

		suite.e.GET("/code/abc123").
			Expect().
			Status(http.StatusBadGateway).
			Body().
			Contains("Failed to fetch link stats. Please try again.").
			Contains("Try again")
	})
}

func (suite *WebTestSuite) TestRedirect() {
	suite.Run("guard fires once per session", func() {
		suite.linkClientMock.
			On("RedirectURL", "abc123").
			Twice().
			Return("http://api.local/abc123", nil)
		suite.linkClientMock.
			On("ListLinks", mock.Anything, "").
			Once().
			Return([]client.Link{}, nil)

		suite.e.GET("/abc123").
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("http://api.local/abc123")

		suite.e.GET("/abc123").
			Expect().
			Status(http.StatusOK).
			Body().
			Contains("Redirecting...").
			Contains("Please wait").
			NotContains("http-equiv")

		suite.e.GET("/").
			Expect().
			Status(http.StatusOK)

		suite.e.GET("/abc123").
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("http://api.local/abc123")
	})

	suite.Run("guards are per code", func() {
		suite.linkClientMock.
			On("RedirectURL", "abc123").
			Once().
			Return("http://api.local/abc123", nil)
		suite.linkClientMock.
			On("RedirectURL", "xyz789").
			Once().
			Return("http://api.local/xyz789", nil)

		suite.e.GET("/abc123").
			Expect().
			Status(http.StatusFound)

		suite.e.GET("/xyz789").
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("http://api.local/xyz789")
	})

	suite.Run("paths that are not codes", func() {
		for _, path := range []string{"/favicon.ico", "/robots.txt", "/abc"} {
			suite.e.GET(path).
				Expect().
				Status(http.StatusNotFound).
				Body().
				Contains("Link not found").
				Contains(`content="2;url=/"`)
		}

		suite.linkClientMock.AssertNotCalled(suite.T(), "RedirectURL", mock.Anything)
	})

	suite.Run("setup failure clears the guard", func() {
		suite.linkClientMock.
			On("RedirectURL", "abc123").
			Once().
			Return("", suite.errUnknown)
		suite.linkClientMock.
			On("RedirectURL", "abc123").
			Once().
			Return("http://api.local/abc123", nil)

		suite.e.GET("/abc123").
			Expect().
			Status(http.StatusOK).
			Body().
			Contains("An error occurred: unknown error").
			Contains("Redirecting to dashboard...").
			Contains(`content="2;url=/"`)

		suite.e.GET("/abc123").
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("http://api.local/abc123")
	})
}

func TestWeb(t *testing.T) {
	suite.Run(t, new(WebTestSuite))
}

func TestFormatTime(t *testing.T) {
	at := time.Date(2024, 5, 2, 8, 30, 0, 0, time.FixedZone("CEST", 2*60*60))

	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil pointer", in: (*time.Time)(nil), want: "Never"},
		{name: "zero", in: time.Time{}, want: "Never"},
		{name: "pointer", in: &at, want: "2024-05-02 06:30:00 UTC"},
		{name: "value", in: at, want: "2024-05-02 06:30:00 UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatTime(tt.in); got != tt.want {
				t.Errorf("formatTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("https://example.com", 50); got != "https://example.com" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Errorf("truncate() = %q", got)
	}
}
