package api

import (
	"errors"
	"strings"
	"time"

	"github.com/terraincognita07/dairyforms/internal/models"
	"github.com/terraincognita07/dairyforms/internal/services"
	"go.uber.org/zap"
)

const (
	sessionCookieName = "dairyforms_session"
	defaultSessionTTL = 30 * 24 * time.Hour

	adminFailureLimit  = 5
	adminFailureWindow = 15 * time.Minute
)

// SessionStore persists workflow sessions between requests.
type SessionStore interface {
	Find(sessionID string, form string) (models.WorkflowSession, bool, error)
	Save(session *models.WorkflowSession) error
}

type Options struct {
	Workflows         *services.WorkflowSet
	Sessions          SessionStore
	SecretKey         string
	AdminUser         string
	AdminPasswordHash string
	CookieSecure      bool
	SessionTTL        time.Duration
	Logger            *zap.Logger
}

type Handler struct {
	workflows         *services.WorkflowSet
	sessions          SessionStore
	secretKey         []byte
	adminUser         string
	adminPasswordHash []byte
	cookieSecure      bool
	sessionTTL        time.Duration
	adminLimiter      *attemptLimiter
	sessionLocks      sessionLocks
	logger            *zap.Logger
	now               func() time.Time
}

func NewHandler(options Options) (*Handler, error) {
	if options.Workflows == nil {
		return nil, errors.New("workflows are required")
	}
	if options.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if strings.TrimSpace(options.SecretKey) == "" {
		return nil, errors.New("secret key is required")
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	adminUser := strings.TrimSpace(options.AdminUser)
	if adminUser == "" {
		adminUser = "admin"
	}
	sessionTTL := options.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}

	return &Handler{
		workflows:         options.Workflows,
		sessions:          options.Sessions,
		secretKey:         []byte(options.SecretKey),
		adminUser:         adminUser,
		adminPasswordHash: []byte(strings.TrimSpace(options.AdminPasswordHash)),
		cookieSecure:      options.CookieSecure,
		sessionTTL:        sessionTTL,
		adminLimiter:      newAttemptLimiter(adminFailureLimit, adminFailureWindow),
		logger:            logger,
		now:               time.Now,
	}, nil
}
