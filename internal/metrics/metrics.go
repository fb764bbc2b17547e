// metrics — счётчики исходов операций аутентификации.
//
// Метрики опциональны: сервис работает и без них (nil-safe методы),
// композиция в cmd решает, регистрировать ли их и где отдавать /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Метки исхода операции.
const (
	ResultSuccess            = "success"
	ResultInvalidCredentials = "invalid_credentials"
	ResultAccountInactive    = "account_inactive"
	ResultInvalidToken       = "invalid_token"
	ResultTokenExpired       = "token_expired"
	ResultWrongTokenType     = "wrong_token_type"
	ResultTokenRevoked       = "token_revoked"
	ResultForbidden          = "forbidden"
	ResultUnavailable        = "unavailable"
	ResultError              = "error"
)

// AuthMetrics — счётчики операций сервиса авторизации.
type AuthMetrics struct {
	logins      *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	validations *prometheus.CounterVec
	revocations prometheus.Counter
}

// New создаёт и регистрирует счётчики в переданном регистре.
func New(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_logins_total",
				Help: "Login attempts by result.",
			},
			[]string{"result"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_refreshes_total",
				Help: "Refresh attempts by result.",
			},
			[]string{"result"},
		),
		validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_token_validations_total",
				Help: "Access-token validations by result.",
			},
			[]string{"result"},
		),
		revocations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_revocations_total",
				Help: "Refresh tokens revoked via logout or password change.",
			},
		),
	}

	reg.MustRegister(m.logins, m.refreshes, m.validations, m.revocations)

	return m
}

// ObserveLogin учитывает исход попытки входа.
func (m *AuthMetrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

// ObserveRefresh учитывает исход обновления токенов.
func (m *AuthMetrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

// ObserveValidation учитывает исход валидации access-токена.
func (m *AuthMetrics) ObserveValidation(result string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(result).Inc()
}

// ObserveRevocation учитывает успешный отзыв refresh-токена.
func (m *AuthMetrics) ObserveRevocation() {
	if m == nil {
		return
	}
	m.revocations.Inc()
}

// Handler — HTTP-хэндлер Prometheus для default-регистра.
func Handler() http.Handler {
	return promhttp.Handler()
}
