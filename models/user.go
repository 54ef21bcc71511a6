package models

import "time"

// User is the public account view returned by the auth endpoints.
type User struct {
	UserID       string    `json:"id" bson:"userid"`
	Email        string    `json:"email" bson:"email"`
	Name         string    `json:"name,omitempty" bson:"name,omitempty"`
	Segment      string    `json:"segment,omitempty" bson:"segment,omitempty"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	LastLogin    time.Time `json:"last_login" bson:"last_login"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// IDList is a wishlist or compare list as stored upstream.
type IDList struct {
	UserID    string    `json:"userId,omitempty" bson:"userId"`
	Kind      string    `json:"kind,omitempty" bson:"kind"`
	IDs       []string  `json:"ids" bson:"ids"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
