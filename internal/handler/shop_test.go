package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/repository"
	"github.com/flicky/go-marketplace-api/internal/service"
)

type stubShopRepo struct {
	repository.ShopRepository
	shops     map[string]*model.Shop
	followers map[uuid.UUID]map[uuid.UUID]bool
}

func (s *stubShopRepo) GetBySlug(_ context.Context, slug string) (*model.Shop, error) {
	shop, ok := s.shops[slug]
	if !ok || !shop.IsActive {
		return nil, nil
	}
	return shop, nil
}

func (s *stubShopRepo) IsFollowing(_ context.Context, shopID, userID uuid.UUID) (bool, error) {
	return s.followers[shopID][userID], nil
}

func (s *stubShopRepo) Follow(_ context.Context, shopID, userID uuid.UUID) (bool, error) {
	if s.followers[shopID] == nil {
		s.followers[shopID] = make(map[uuid.UUID]bool)
	}
	if s.followers[shopID][userID] {
		return false, nil
	}
	s.followers[shopID][userID] = true
	return true, nil
}

func (s *stubShopRepo) Unfollow(_ context.Context, shopID, userID uuid.UUID) (bool, error) {
	if !s.followers[shopID][userID] {
		return false, nil
	}
	delete(s.followers[shopID], userID)
	return true, nil
}

func (s *stubShopRepo) Stats(_ context.Context, shopID uuid.UUID) (*model.ShopStats, error) {
	return &model.ShopStats{
		TotalProducts: 2,
		TotalOrders:   3,
		TotalRevenue:  decimal.NewFromInt(450),
		PendingOrders: 1,
		Followers:     len(s.followers[shopID]),
	}, nil
}

type ShopAPISuite struct {
	suite.Suite
	router *gin.Engine
	repo   *stubShopRepo
	owner  uuid.UUID
	fan    uuid.UUID
}

func TestShopAPISuite(t *testing.T) {
	suite.Run(t, new(ShopAPISuite))
}

func (s *ShopAPISuite) SetupTest() {
	s.owner = uuid.New()
	s.fan = uuid.New()
	s.repo = &stubShopRepo{
		shops: map[string]*model.Shop{
			"lamps":  {ID: uuid.New(), OwnerID: s.owner, Name: "Lamps", Slug: "lamps", IsActive: true},
			"closed": {ID: uuid.New(), OwnerID: s.owner, Name: "Closed", Slug: "closed"},
		},
		followers: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	shops := service.NewShopService(s.repo, nil, nil, nil, log)
	s.router = NewRouter(Handlers{Shop: NewShopHandler(shops)}, testSecret, log)
}

func (s *ShopAPISuite) token(userID uuid.UUID) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID.String(),
		"role": model.RoleCustomer,
		"typ":  service.TokenTypeAccess,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	s.Require().NoError(err)
	return token
}

func (s *ShopAPISuite) do(method, path string, userID uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if userID != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+s.token(userID))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *ShopAPISuite) TestFollowIsIdempotent() {
	w := s.do(http.MethodPost, "/api/v1/shops/lamps/follow", s.fan)
	s.Equal(http.StatusCreated, w.Code)
	s.Contains(w.Body.String(), "now following")

	w = s.do(http.MethodPost, "/api/v1/shops/lamps/follow", s.fan)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "already following")
}

func (s *ShopAPISuite) TestUnfollowRequiresFollowing() {
	w := s.do(http.MethodPost, "/api/v1/shops/lamps/unfollow", s.fan)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), `"shop"`)

	s.do(http.MethodPost, "/api/v1/shops/lamps/follow", s.fan)
	w = s.do(http.MethodPost, "/api/v1/shops/lamps/unfollow", s.fan)
	s.Equal(http.StatusOK, w.Code)
}

func (s *ShopAPISuite) TestDetailShowsFollowingForViewer() {
	s.do(http.MethodPost, "/api/v1/shops/lamps/follow", s.fan)

	w := s.do(http.MethodGet, "/api/v1/shops/lamps", s.fan)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"is_following":true`)

	w = s.do(http.MethodGet, "/api/v1/shops/lamps", uuid.Nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"is_following":false`)
}

func (s *ShopAPISuite) TestInactiveShopIsNotFound() {
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/v1/shops/closed", uuid.Nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodPost, "/api/v1/shops/closed/follow", s.fan).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/v1/shops/closed/stats", s.owner).Code)
}

func (s *ShopAPISuite) TestStatsOwnerOnly() {
	w := s.do(http.MethodGet, "/api/v1/shops/lamps/stats", s.fan)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/shops/lamps/stats", s.owner)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"total_revenue":"450"`)
	s.Contains(w.Body.String(), `"pending_orders":1`)
}
