package domain

type User struct {
	ID         int32  `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	PushToken  string `json:"-"`
	IsVerified bool   `json:"is_verified"`
}
