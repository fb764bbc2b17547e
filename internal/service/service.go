// service содержит ядро аутентификации sales-дашборда:
// проверку учётных данных, выпуск/валидацию пары access/refresh токенов
// и проверку ролей. Хранилище учётных записей и реестр отозванных
// токенов подключаются через интерфейсы (storage, ledger).
//
// Основные аспекты:
//   - Сервис не хранит состояние запроса; экземпляр Service безопасен для
//     конкурентного использования из разных горутин при условии, что
//     переданные хранилище и реестр потокобезопасны.
//   - Все блокирующие обращения к коллабораторам принимают context;
//     дедлайн/отмена маппятся в ErrUnavailable.
//   - Ошибки возвращаются и далее маппятся HTTP-слоем дашборда
//     на коды ответа (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"

	"github.com/mundonegocio/auth-service/internal/config"
	"github.com/mundonegocio/auth-service/internal/ledger"
	"github.com/mundonegocio/auth-service/internal/metrics"
	"github.com/mundonegocio/auth-service/internal/storage"
)

var (
	// ErrInvalidCredentials — пара email/пароль неверна или пользователь
	// не найден. Значение ошибки ОДНО для обоих случаев — наружу нельзя
	// раскрывать, существует ли аккаунт. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountInactive — учётная запись отключена. Отличается от
	// ErrInvalidCredentials: статус аккаунта не секрет и сообщается
	// только после успешной проверки пароля. HTTP 401.
	ErrAccountInactive = errors.New("account inactive")

	// ErrInvalidToken — токен некорректен по формату или подписи.
	// HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк (подпись при этом
	// может быть валидной). HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrWrongTokenType — предъявлен токен другого назначения
	// (access вместо refresh или наоборот). HTTP 401.
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrTokenRevoked — refresh-токен отозван (logout/смена пароля) и
	// недействителен независимо от срока. HTTP 401.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrForbidden — аутентифицированному пользователю не хватает роли
	// для операции. HTTP 403.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable — хранилище или реестр недоступны/не ответили в
	// срок; вызывающий может повторить запрос. HTTP 5xx.
	ErrUnavailable = errors.New("auth backend unavailable")

	// ErrWeakPassword — новый пароль не удовлетворяет политике
	// сложности. HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — новый пароль пустой. HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")
)

// Service реализует ядро аутентификации и авторизации.
type Service struct {
	store   storage.UserStorage
	ledger  ledger.Ledger
	cfg     config.AuthConfig
	metrics *metrics.AuthMetrics // может быть nil, если метрики не сконфигурированы
}

// New создаёт новый экземпляр Service.
func New(store storage.UserStorage, ledger ledger.Ledger, cfg config.AuthConfig) *Service {
	return &Service{
		store:  store,
		ledger: ledger,
		cfg:    cfg,
	}
}

// SetMetrics устанавливает счётчики операций (опционально).
func (s *Service) SetMetrics(m *metrics.AuthMetrics) {
	s.metrics = m
}
