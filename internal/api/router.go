// Package api is the HTTP surface of the backend: dictionary lookup, alphabet,
// health, dataset files and the SPA fallback.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/insignia/internal/alphabet"
	"github.com/kiliankoe/insignia/internal/dataset"
)

// Dictionary finds sample images for a class.
type Dictionary interface {
	Lookup(ctx context.Context, classID int) (dataset.Result, error)
}

type Options struct {
	Dictionary  Dictionary
	DatasetRoot string       // served as-is under PublicPath
	PublicPath  string       // e.g. /dataset
	AllowOrigin string       // CORS origin, * when empty
	Frontend    http.Handler // serves every unmatched route; nil means plain 404
}

func NewRouter(o Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORS(o.AllowOrigin))

	// Healthcheck
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	api := r.Group("/api")
	api.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to InSignia Backend API"})
	})
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "timestamp": time.Now().UTC().Format(time.RFC3339Nano)})
	})
	api.GET("/alphabet", func(c *gin.Context) {
		c.JSON(http.StatusOK, alphabet.Items())
	})
	api.GET("/dictionary", dictionary(o.Dictionary))

	if o.DatasetRoot != "" {
		public := o.PublicPath
		if public == "" {
			public = "/dataset"
		}
		r.Static(public, o.DatasetRoot)
	}

	if o.Frontend != nil {
		r.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			o.Frontend.ServeHTTP(c.Writer, c.Request)
		})
	}
	return r
}

func dictionary(dict Dictionary) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, present := c.GetQuery("classId")
		if !present {
			c.JSON(http.StatusBadRequest, gin.H{"error": "classId query parameter is required"})
			return
		}
		classID, err := dataset.ParseClassID(raw, present)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "classId must be a non-negative integer"})
			return
		}

		res, err := dict.Lookup(c.Request.Context(), classID)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, res)
		case errors.Is(err, dataset.ErrInvalidArgument):
			c.JSON(http.StatusBadRequest, gin.H{"error": "classId must be a non-negative integer"})
		case errors.Is(err, dataset.ErrDatasetUnavailable):
			log.Error().Err(err).Int("classId", classID).Msg("dataset directories missing")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Dataset directories not found on server"})
		default:
			log.Error().Err(err).Int("classId", classID).Msg("error while reading dictionary dataset")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read dataset on server"})
		}
	}
}
