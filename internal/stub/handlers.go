package stub

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/priroda-spa/loyalty-console/internal/loyalty"
)

// Handler serves the stub's admin API.
type Handler struct {
	store *Store
	token string
}

// NewRouter builds the gin engine for the stub backend. When adminToken
// is non-empty every request must carry it as a bearer token, matching
// how the real backend guards its admin surface. CORS is open because the
// other consumer of this API is the browser-based admin SPA.
func NewRouter(store *Store, adminToken string) *gin.Engine {
	h := &Handler{store: store, token: adminToken}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	v1 := router.Group("/api/v1", h.requireAdmin)
	{
		v1.GET("/admin/loyalty/users/by-code/:code", h.GetUserByCode)
		v1.POST("/admin/loyalty/users/:id/adjust", h.AdjustUserBonuses)
		v1.GET("/admin/users", h.ListUsers)

		v1.GET("/admin/loyalty/levels", h.ListLevels)
		v1.POST("/admin/loyalty/levels", h.CreateLevel)
		v1.PATCH("/admin/loyalty/levels/:id", h.UpdateLevel)
		v1.DELETE("/admin/loyalty/levels/:id", h.DeleteLevel)

		v1.GET("/admin/loyalty/settings", h.GetSettings)
		v1.PATCH("/admin/loyalty/settings", h.UpdateSettings)
	}

	return router
}

func (h *Handler) requireAdmin(c *gin.Context) {
	if h.token == "" {
		return
	}
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != h.token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Не авторизован"})
	}
}

// GetUserByCode handles GET /admin/loyalty/users/by-code/{code}.
func (h *Handler) GetUserByCode(c *gin.Context) {
	code := c.Param("code")
	account := h.store.AccountByCode(code)
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Пользователь с кодом %s не найден", code)})
		return
	}
	c.JSON(http.StatusOK, account)
}

type adjustRequest struct {
	Services     []loyalty.ServiceItem `json:"services"`
	BonusesDelta *int                  `json:"bonuses_delta"`
	Reason       string                `json:"reason"`
}

// AdjustUserBonuses handles POST /admin/loyalty/users/{id}/adjust.
func (h *Handler) AdjustUserBonuses(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "некорректный идентификатор пользователя"})
		return
	}

	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	for _, svc := range req.Services {
		if strings.TrimSpace(svc.Name) == "" || svc.PriceRub <= 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "услуга должна иметь название и положительную стоимость"})
			return
		}
	}
	if len(req.Services) == 0 && req.BonusesDelta == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "укажите услуги или изменение бонусов"})
		return
	}

	outcome := h.store.Adjust(userID, req.Services, req.BonusesDelta)
	switch {
	case outcome.NotFound:
		c.JSON(http.StatusNotFound, gin.H{"detail": "Пользователь не найден"})
	case outcome.Overdraw:
		c.JSON(http.StatusBadRequest, gin.H{
			"detail": fmt.Sprintf("Недостаточно бонусов. У пользователя %d бонусов, пытаетесь списать %d", outcome.Balance, -*req.BonusesDelta),
		})
	default:
		c.JSON(http.StatusOK, loyalty.AdjustmentResult{
			BonusesAwarded: outcome.Awarded,
			BonusesSpent:   outcome.Spent,
			CurrentBonuses: outcome.CurrentBonuses,
		})
	}
}

// ListUsers handles GET /admin/users.
func (h *Handler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	items, total := h.store.ListAccounts(c.Query("search"), limit, offset)
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

// ListLevels handles GET /admin/loyalty/levels.
func (h *Handler) ListLevels(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Levels())
}

type levelCreateRequest struct {
	Name       string `json:"name" binding:"required"`
	MinBonuses int    `json:"min_bonuses"`
	ColorStart string `json:"color_start"`
	ColorEnd   string `json:"color_end"`
	Icon       string `json:"icon"`
	OrderIndex int    `json:"order_index"`
}

// CreateLevel handles POST /admin/loyalty/levels. The cashback percent is
// not editable through the API; new tiers start at the entry rate.
func (h *Handler) CreateLevel(c *gin.Context) {
	var req levelCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	icon := req.Icon
	if icon == "" {
		icon = "eco"
	}
	level := h.store.AddLevel(&Level{
		Name:            req.Name,
		MinBonuses:      req.MinBonuses,
		CashbackPercent: loyalty.DefaultCashbackPercent,
		ColorStart:      req.ColorStart,
		ColorEnd:        req.ColorEnd,
		Icon:            icon,
		OrderIndex:      req.OrderIndex,
	})
	c.JSON(http.StatusCreated, level)
}

type levelUpdateRequest struct {
	Name       *string `json:"name"`
	MinBonuses *int    `json:"min_bonuses"`
	ColorStart *string `json:"color_start"`
	ColorEnd   *string `json:"color_end"`
	Icon       *string `json:"icon"`
	OrderIndex *int    `json:"order_index"`
}

// UpdateLevel handles PATCH /admin/loyalty/levels/{id}.
func (h *Handler) UpdateLevel(c *gin.Context) {
	levelID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "некорректный идентификатор уровня"})
		return
	}
	var req levelUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	level, ok := h.store.UpdateLevel(levelID, func(l *Level) {
		if req.Name != nil {
			l.Name = *req.Name
		}
		if req.MinBonuses != nil {
			l.MinBonuses = *req.MinBonuses
		}
		if req.ColorStart != nil {
			l.ColorStart = *req.ColorStart
		}
		if req.ColorEnd != nil {
			l.ColorEnd = *req.ColorEnd
		}
		if req.Icon != nil {
			l.Icon = *req.Icon
		}
		if req.OrderIndex != nil {
			l.OrderIndex = *req.OrderIndex
		}
	})
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Уровень не найден"})
		return
	}
	c.JSON(http.StatusOK, level)
}

// DeleteLevel handles DELETE /admin/loyalty/levels/{id}.
func (h *Handler) DeleteLevel(c *gin.Context) {
	levelID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "некорректный идентификатор уровня"})
		return
	}
	if !h.store.DeleteLevel(levelID) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Уровень не найден"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSettings handles GET /admin/loyalty/settings.
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.GetSettings())
}

type settingsUpdateRequest struct {
	PointsPer100Rub int `json:"points_per_100_rub" binding:"required"`
}

// UpdateSettings handles PATCH /admin/loyalty/settings.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req settingsUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.store.SetPointsPer100Rub(req.PointsPer100Rub))
}
