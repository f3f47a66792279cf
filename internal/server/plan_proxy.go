package server

import (
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

var planHTTPClient = &http.Client{
	Timeout: 2 * time.Minute,
}

// handlePlanProxy forwards authenticated requests to the external floor-plan
// generation service. It is a plain passthrough: the backend adds the API
// key, copies a header allowlist both ways and streams the body.
func (s *Server) handlePlanProxy(w http.ResponseWriter, r *http.Request) {
	accountID := accountIDFromContext(r.Context())
	if accountID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	base, err := url.Parse(s.Config.PlanAPI.URL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		writeError(w, http.StatusInternalServerError, "Plan service is not configured")
		return
	}

	planPath := "/" + strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	target := *base
	target.Path = joinPlanPath(base.Path, planPath)
	target.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to create plan request")
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}
	if s.Config.PlanAPI.APIKey != "" {
		req.Header.Set("X-API-Key", s.Config.PlanAPI.APIKey)
	}

	resp, err := planHTTPClient.Do(req)
	if err != nil {
		log.Printf("plan proxy: account=%s method=%s path=%s error=%v", accountID, r.Method, planPath, err)
		writeError(w, http.StatusBadGateway, "Plan request failed")
		return
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header, []string{
		"Content-Type",
		"Content-Disposition",
		"Content-Length",
	})
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Printf("plan proxy: account=%s method=%s path=%s copy_error=%v", accountID, r.Method, planPath, err)
	}
}

func joinPlanPath(basePath, planPath string) string {
	if basePath == "" || basePath == "/" {
		return planPath
	}
	return strings.TrimRight(basePath, "/") + planPath
}

func copyHeaders(dst, src http.Header, keys []string) {
	for _, key := range keys {
		for _, v := range src.Values(key) {
			dst.Add(key, v)
		}
	}
}
