package util

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

/*
MakeJWTAuthHttpHandlerFunc guards a status endpoint with an HS256 token signed with secretKey.
An empty secretKey disables the check.
*/
func MakeJWTAuthHttpHandlerFunc(secretKey string, f http.HandlerFunc) http.HandlerFunc {

	if secretKey == "" {
		return f
	}

	return func(w http.ResponseWriter, r *http.Request) {

		if _, err := ValidateJwtToken(secretKey, BearerToken(r)); err != nil {

			_ = WriteJSON(w, http.StatusForbidden, &HTTPError{Status: http.StatusForbidden, Error: "invalid jwt token"})
			return
		}

		f(w, r)
	}
}

func GenerateJwtToken(secretKey string, subject string) (string, *HTTPError) {

	claims := &jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secretKey))

	if err != nil {
		return "", &HTTPError{Error: "error while generating jwt token.", Status: 500}
	}

	return tokenString, nil
}

func ValidateJwtToken(secretKey string, jwtToken string) (*jwt.Token, error) {

	return jwt.Parse(jwtToken, func(token *jwt.Token) (interface{}, error) {

		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {

			return nil, fmt.Errorf("wrong signing key")
		}

		return []byte(secretKey), nil
	})
}

func GetSubjectFromJwtToken(secretKey string, jwtToken string) (string, error) {

	parsedToken, err := ValidateJwtToken(secretKey, jwtToken)

	if err != nil {

		return "", fmt.Errorf("error in parsing JWT")
	}

	subject, err := parsedToken.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("error in extracting subject claim from JWT")
	}

	return subject, nil
}
