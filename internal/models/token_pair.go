package models

import "time"

// TokenTypeBearer — маркер типа токенов для клиента.
const TokenTypeBearer = "bearer"

// TokenPair — пара токенов, выдаваемая при входе и обновляемая по refresh.
//
// Описание:
//   - AccessToken — короткоживущий подписанный JWT для доступа к API;
//   - RefreshToken — долгоживущий подписанный JWT с уникальным jti,
//     предъявляется только для выпуска нового access-токена;
//   - TokenType — всегда "bearer";
//   - ExpiresIn — срок жизни access-токена в секундах (для клиента);
//   - AccessExpiresAt — момент истечения access-токена (UTC).
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	TokenType       string
	ExpiresIn       int64
	AccessExpiresAt time.Time
}
