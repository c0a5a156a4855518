package users

import (
	"time"

	"github.com/google/uuid"
)

type ContextKey string

const UserKey ContextKey = "user"

type User struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	Username    string    `db:"username" json:"username"`
	Provider    *string   `db:"provider" json:"-"`
	ProviderID  *string   `db:"provider_id" json:"-"`
	AvatarURL   *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	IsSiteAdmin bool      `db:"is_site_admin" json:"is_site_admin"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
