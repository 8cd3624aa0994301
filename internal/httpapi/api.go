package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"time"

	"talenta.dev/internal/auth"
	"talenta.dev/internal/employee"
	"talenta.dev/internal/obs"
)

// ReadyProbe reports service readiness (database ping when configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options tunes the HTTP layer.
type Options struct {
	Cookies     CookieConfig
	Timezone    *time.Location
	CORSOrigins []string
	RateBurst   int
	RatePerSec  int
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	store      employee.Store
	guard      *auth.Service

	cookies     CookieConfig
	tz          *time.Location
	corsOrigins []string

	rateMu      sync.Mutex
	rateBuckets map[string]*rateBucket
	rateSweep   time.Time
	rateBurst   int
	ratePerSec  int
}

// New wires routes onto a fresh mux. A nil opts applies defaults.
func New(rp ReadyProbe, version string, store employee.Store, guard *auth.Service, opts *Options) *API {
	a := &API{
		mux:         http.NewServeMux(),
		readyProbe:  rp,
		version:     version,
		store:       store,
		guard:       guard,
		cookies:     DefaultCookieConfig(),
		tz:          time.Local,
		rateBuckets: make(map[string]*rateBucket),
		rateBurst:   10,
		ratePerSec:  5,
	}
	if opts != nil {
		if opts.Cookies.Name != "" {
			a.cookies = opts.Cookies
		}
		if opts.Timezone != nil {
			a.tz = opts.Timezone
		}
		a.corsOrigins = opts.CORSOrigins
		if opts.RateBurst > 0 {
			a.rateBurst = opts.RateBurst
		}
		if opts.RatePerSec > 0 {
			a.ratePerSec = opts.RatePerSec
		}
	}

	// health/ready
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// authentication
	a.mux.HandleFunc("/login", a.handleLogin)
	a.mux.HandleFunc("/logout", a.handleLogout)
	a.mux.HandleFunc("/refresh", a.handleRefresh)
	a.mux.HandleFunc("/me", a.handleMe)
	a.mux.HandleFunc("/register", a.handleRegister)

	// resources
	a.mux.HandleFunc("/karyawans", a.handleEmployees)
	a.mux.HandleFunc("/karyawans/", a.handleEmployeeResource)
	a.mux.HandleFunc("/units", a.handleUnits)
	a.mux.HandleFunc("/units/", a.handleUnitResource)
	a.mux.HandleFunc("/jabatans", a.handlePositions)
	a.mux.HandleFunc("/jabatans/", a.handlePositionResource)

	// dashboard
	a.mux.HandleFunc("/dashboard", a.handleDashboard)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server. Cookie
// extraction runs ahead of the session guard so downstream handlers only
// deal with bearer carriers.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = a.cookieToBearer(h)
	h = a.loginRateLimit(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RequestID(h)
	h = a.cors(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "talenta-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
