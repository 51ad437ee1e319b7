package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
)

const sessionCookieName = "admin_session"

// envelope is the structured success/failure body every JSON endpoint
// returns; failures never surface as raw faults.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func jsonSuccess(data interface{}) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(envelope{Success: true, Data: data})
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func jsonFailure(status int, message string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(envelope{Success: false, Message: message})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func redirect(location string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers:    map[string]string{"Location": location},
	}
}

// RequireAdmin extracts and verifies the administrator session from the
// Authorization header or session cookie. Authorization failures are fatal
// for the request.
func RequireAdmin(req events.APIGatewayProxyRequest, jwtSecret string) (string, error) {
	// An empty key would verify tokens signed with an empty key.
	if jwtSecret == "" {
		return "", fmt.Errorf("admin session secret is not configured")
	}

	getHeader := func(name string) string {
		for k, v := range req.Headers {
			if strings.EqualFold(k, name) {
				return v
			}
		}
		return ""
	}

	tokenString := ""
	if authHeader := getHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	}
	if tokenString == "" {
		for _, part := range strings.Split(getHeader("Cookie"), ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, sessionCookieName+"=") {
				tokenString = strings.TrimPrefix(part, sessionCookieName+"=")
				break
			}
		}
	}
	if tokenString == "" {
		return "", fmt.Errorf("no authorization token found")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}
	if admin, _ := claims["admin"].(bool); !admin {
		return "", fmt.Errorf("administrator capability required")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("invalid token claims")
	}
	return sub, nil
}
