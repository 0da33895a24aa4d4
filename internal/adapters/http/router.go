package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dkeye/Chorus/internal/adapters/signal"
	"github.com/dkeye/Chorus/internal/app/orch"
	"github.com/dkeye/Chorus/internal/config"
	"github.com/dkeye/Chorus/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const adminKey = "admin"

// RequireAdmin rejects requests whose cookie session never logged in.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if ok, _ := session.Get(adminKey).(bool); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, ctl *signal.SignalWSController) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 12, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("ChorusSessions", store))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		ctl.HandleSignal(ctx, c)
	})

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.ListRooms()})
	})

	api.POST("/admin/login", func(c *gin.Context) {
		var req struct {
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		if err := o.Login(req.Password); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false})
			return
		}
		session := sessions.Default(c)
		session.Set(adminKey, true)
		if err := session.Save(); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("save admin session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api.POST("/admin/logout", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Clear()
		_ = session.Save()
		c.Status(http.StatusNoContent)
	})

	admin := api.Group("", RequireAdmin())

	admin.POST("/rooms", func(c *gin.Context) {
		var req struct {
			Room string `json:"room"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		name, created, err := o.CreateRoom(c.Request.Context(), req.Room)
		if err != nil {
			writeError(c, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"room": name, "created": created})
	})

	admin.GET("/rooms/:room", func(c *gin.Context) {
		details, err := o.RoomDetails(c.Param("room"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, details)
	})

	admin.DELETE("/rooms/:room", func(c *gin.Context) {
		deleted, err := o.DeleteRoom(c.Request.Context(), c.Param("room"))
		if err != nil {
			writeError(c, err)
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown_room"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	admin.DELETE("/connections/:conn", func(c *gin.Context) {
		if !o.Kick(domain.ConnID(c.Param("conn"))) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown_connection"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	admin.GET("/dashboard", func(c *gin.Context) {
		c.JSON(http.StatusOK, o.Dashboard())
	})

	return r
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownRoom):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_room"})
	case errors.Is(err, domain.ErrInvalidRoomName):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_room"})
	default:
		log.Error().Err(err).Str("module", "adapters.http").Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
