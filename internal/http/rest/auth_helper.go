package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/bwise1/querydesk/internal/model"
	"github.com/bwise1/querydesk/internal/storage"
	"github.com/bwise1/querydesk/util"
	"github.com/bwise1/querydesk/util/values"
	"github.com/golang-jwt/jwt"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var (
	errInvalidCredentials = errors.New("invalid credentials")
	rgxUsernameStrip      = regexp.MustCompile(`[^\w.@+-]`)
)

type TokenClaims struct {
	UserID string `json:"sub"`
	Type   string `json:"typ"`
	Exp    int64  `json:"exp"`
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (api *API) createToken(id string) (string, time.Time, error) {
	ttl, err := api.Config.TokenTTL()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := time.Now().Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": id, // subject (user ID)
		"exp": expiresAt.Unix(),
		"iat": time.Now().Unix(),
		"typ": "access",
	})

	tokenString, err := token.SignedString([]byte(api.Config.JwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

func (api *API) verifyToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(api.Config.JwtSecret), nil
	})

	if ve, ok := err.(*jwt.ValidationError); ok {
		if ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, fmt.Errorf("token expired")
		}
	}
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims")
	}

	tokenType, _ := claims["typ"].(string)
	if tokenType != "access" {
		return nil, fmt.Errorf("invalid token type")
	}

	userID, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid user id")
	}

	exp, _ := claims["exp"].(float64)
	return &TokenClaims{
		UserID: userID,
		Type:   tokenType,
		Exp:    int64(exp),
	}, nil
}

func (api *API) bcryptCost() int {
	if api.BcryptCost == 0 {
		return bcrypt.DefaultCost
	}
	return api.BcryptCost
}

func (api *API) RegisterUserHelper(ctx context.Context, req model.RegisterRequest) (model.LoginResponse, string, string, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if err := util.ValidateStruct(req); err != nil {
		return model.LoginResponse{}, values.Unprocessable, "Invalid registration details", err
	}

	if _, err := api.Deps.Store.GetUserByUsername(ctx, req.Username); err == nil {
		return model.LoginResponse{}, values.Unprocessable, "Invalid registration details",
			formError{field: "username", message: "A user with that username already exists."}
	}
	if _, err := api.Deps.Store.GetUserByEmail(ctx, req.Email); err == nil {
		return model.LoginResponse{}, values.Unprocessable, "Invalid registration details",
			formError{field: "email", message: "A user with that email already exists."}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), api.bcryptCost())
	if err != nil {
		return model.LoginResponse{}, values.Error, "Error creating new user", err
	}
	hashed := string(hash)

	user, err := api.Deps.Store.CreateUser(ctx, model.User{
		ID:           util.GenerateUUID(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: &hashed,
		AuthProvider: model.AuthProviderPassword,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return model.LoginResponse{}, values.Conflict, "User already exists", err
		}
		return model.LoginResponse{}, values.Error, "Error creating new user", err
	}

	return api.issueToken(user, values.Created, "User created successfully")
}

func (api *API) LoginUserHelper(ctx context.Context, req model.LoginRequest) (model.LoginResponse, string, string, error) {
	req.Username = strings.TrimSpace(req.Username)

	if err := util.ValidateStruct(req); err != nil {
		return model.LoginResponse{}, values.Unprocessable, "Invalid login details", err
	}

	user, err := api.Deps.Store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.LoginResponse{}, values.NotAuthorised, "Invalid username or password", errInvalidCredentials
		}
		return model.LoginResponse{}, values.Error, "Error loading user", err
	}
	if user.PasswordHash == nil {
		return model.LoginResponse{}, values.NotAuthorised, "Invalid username or password", errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return model.LoginResponse{}, values.NotAuthorised, "Invalid username or password", errInvalidCredentials
	}

	return api.issueToken(user, values.Success, "Login successful")
}

func (api *API) GoogleCreateHelper(ctx context.Context, req model.GoogleTokenRequest) (model.LoginResponse, string, string, error) {
	info, status, message, err := api.googleUser(ctx, req)
	if err != nil {
		return model.LoginResponse{}, status, message, err
	}

	if _, err := api.Deps.Store.GetUserByEmail(ctx, info.Email); err == nil {
		return model.LoginResponse{}, values.Conflict, "user already exists", errors.New("google account already registered")
	}

	username, err := api.availableUsername(ctx, info.Email)
	if err != nil {
		return model.LoginResponse{}, values.Error, "failed to create new user", err
	}

	user, err := api.Deps.Store.CreateUser(ctx, model.User{
		ID:           util.GenerateUUID(),
		Username:     username,
		Email:        info.Email,
		AuthProvider: model.AuthProviderGoogle,
	})
	if err != nil {
		return model.LoginResponse{}, values.Error, "failed to create new user", err
	}

	return api.issueToken(user, values.Created, "Account created successfully")
}

func (api *API) GoogleLoginHelper(ctx context.Context, req model.GoogleTokenRequest) (model.LoginResponse, string, string, error) {
	info, status, message, err := api.googleUser(ctx, req)
	if err != nil {
		return model.LoginResponse{}, status, message, err
	}

	user, err := api.Deps.Store.GetUserByEmail(ctx, info.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.LoginResponse{}, values.NotFound, "user does not exist", err
		}
		return model.LoginResponse{}, values.Error, "failed to load user", err
	}

	return api.issueToken(user, values.Success, "Login successful")
}

func (api *API) issueToken(user model.User, status, message string) (model.LoginResponse, string, string, error) {
	token, _, err := api.createToken(user.ID.String())
	if err != nil {
		return model.LoginResponse{}, values.Error, fmt.Sprintf("%s [CrTk]", values.SystemErr), err
	}
	return model.LoginResponse{User: &user, Token: token}, status, message, nil
}

// googleUser exchanges an access token for the Google profile it belongs to.
func (api *API) googleUser(ctx context.Context, req model.GoogleTokenRequest) (googleUserInfo, string, string, error) {
	if err := util.ValidateStruct(req); err != nil {
		return googleUserInfo{}, values.Unprocessable, "access token is required", err
	}

	client := api.oauth.Client(ctx, &oauth2.Token{AccessToken: req.AccessToken})
	resp, err := client.Get(api.GoogleUserInfoURL)
	if err != nil {
		return googleUserInfo{}, values.Error, "failed to get user info", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, values.NotAuthorised, "invalid google token", fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, values.Error, "failed to decode user info", err
	}
	info.Email = strings.TrimSpace(info.Email)
	if info.Email == "" {
		return googleUserInfo{}, values.NotAuthorised, "google account has no email", errors.New("empty email")
	}
	return info, values.Success, "", nil
}

// availableUsername derives a free username from an email address.
func (api *API) availableUsername(ctx context.Context, email string) (string, error) {
	base := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		base = email[:at]
	}
	base = rgxUsernameStrip.ReplaceAllString(base, "")
	if len(base) < 3 {
		base = "user" + base
	}
	if len(base) > 140 {
		base = base[:140]
	}

	candidate := base
	for i := 2; i < 100; i++ {
		_, err := api.Deps.Store.GetUserByUsername(ctx, candidate)
		if errors.Is(err, storage.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	log.Printf("[Auth]: no free username for %s", email)
	return "", fmt.Errorf("no free username for %s", email)
}
