package model

type RegisterRequest struct {
	Username        string `json:"username" schema:"username" validate:"required,min=3,max=150,username"`
	Email           string `json:"email" schema:"email" validate:"required,email,max=254"`
	Password        string `json:"password" schema:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"password_confirm" schema:"password_confirm" validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Username string `json:"username" schema:"username" validate:"required"`
	Password string `json:"password" schema:"password" validate:"required"`
	Next     string `json:"-" schema:"next"`
}

type GoogleTokenRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
