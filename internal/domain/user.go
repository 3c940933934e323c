package domain

type User struct {
	ID        string `db:"id" json:"id"`
	Email     string `db:"email" json:"email"`
	Hash      string `db:"password_hash" json:"-"`
	CreatedAt string `db:"created_at" json:"createdAt,omitempty"`
}

// Session is what register, login and refresh hand back to the client.
type Session struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)

type PushToken struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Token     string `db:"token"`
	Platform  string `db:"platform"`
	CreatedAt string `db:"created_at"`
}
