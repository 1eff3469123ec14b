package llm

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"inkwell/internal/fault"
)

const tokenTTL = time.Hour

// mintToken signs the short-lived credential the completion service expects:
// an HS256 JWT built from an "id.secret" API key, with millisecond timestamps
// and a "sign_type: SIGN" header. Minted fresh for every call.
func mintToken(apiKey string, now time.Time) (string, error) {
	id, secret, ok := strings.Cut(apiKey, ".")
	if !ok || id == "" || secret == "" {
		return "", fault.New(fault.Configuration, "llm.mintToken", "api key is not in id.secret form")
	}
	claims := jwt.MapClaims{
		"api_key":   id,
		"timestamp": now.UnixMilli(),
		"exp":       now.Add(tokenTTL).UnixMilli(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["sign_type"] = "SIGN"
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fault.Wrap(fault.Configuration, "llm.mintToken", err)
	}
	return signed, nil
}
