package proto

type RegisterRequest struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// User is the identity returned alongside a token pair.
type User struct {
	Id       string   `json:"id"`
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// AuthResponse is returned by Register, Login and Refresh. ExpiresAt is the
// access token expiry in Unix seconds.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
	User         *User  `json:"user"`
}

// LogoutRequest is empty: the caller is identified by the access_token
// metadata entry.
type LogoutRequest struct{}

type LogoutResponse struct{}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

func (u *User) GetUsername() string {
	if u == nil {
		return ""
	}
	return u.Username
}
