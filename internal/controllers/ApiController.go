package controllers

import (
	"context"
	"errors"
	json "github.com/goccy/go-json"
	"net/http"
	"summard/internal/providers"
	"summard/internal/services"
)

const (
	summaryCacheKey      = "summary"
	availabilityCacheKey = "availability"
)

type ApiController struct {
	logger       providers.Logger
	summary      services.SummaryServiceInterface
	alias        services.AliasServiceInterface
	availability services.AvailabilityServiceInterface
	cache        providers.CacheProviderInterface
}

func NewApiController(logger providers.Logger, summary services.SummaryServiceInterface, alias services.AliasServiceInterface, availability services.AvailabilityServiceInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:       logger,
		summary:      summary,
		alias:        alias,
		availability: availability,
		cache:        cache,
	}
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// upstreamStatus maps a node failure onto the status reported to clients.
func upstreamStatus(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, data)
		return
	}

	result, err := compute()
	if err != nil {
		ac.logger.Errorf(providers.TypeApp, "%s: %s", cacheKey, err)
		http.Error(w, http.StatusText(upstreamStatus(err)), upstreamStatus(err))
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)
	writeJSON(w, http.StatusOK, gson)
}

func (ac *ApiController) GetSummary(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, summaryCacheKey, func() (any, error) {
		return ac.summary.Build(r.Context())
	})
}

func (ac *ApiController) GetAvailability(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, availabilityCacheKey, func() (any, error) {
		return ac.availability.Snapshot(), nil
	})
}

// RefreshAlias forces a lookup of every known peer and is never cached. A
// cached summary would show the old aliases, so it is dropped.
func (ac *ApiController) RefreshAlias(w http.ResponseWriter, r *http.Request) {
	res, err := ac.alias.Refresh(r.Context(), true)
	if err != nil {
		ac.logger.Errorf(providers.TypeApp, "refreshalias: %s", err)
		http.Error(w, http.StatusText(upstreamStatus(err)), upstreamStatus(err))
		return
	}
	ac.cache.Delete(summaryCacheKey)
	gson, err := json.Marshal(res)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, gson)
}
