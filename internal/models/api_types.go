package models

// Request and response bodies shared by the API server and the storefront client.

// SignupInput is the body of POST /api/auth/signup.
type SignupInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role"`
}

// AuthResult is returned by signup, login and the OAuth callback.
type AuthResult struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Token    string `json:"token"`
}

// Profile is the public view of a user.
type Profile struct {
	ID       string  `json:"_id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Role     string  `json:"role"`
	Picture  *string `json:"picture,omitempty"`
}

// NewProfile builds the public view of u.
func NewProfile(u *User) *Profile {
	return &Profile{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		Picture:  u.Picture,
	}
}

// ProductPage is one page of the product listing.
type ProductPage struct {
	Products      []*Product `json:"products"`
	CurrentPage   int        `json:"currentPage"`
	TotalPages    int        `json:"totalPages"`
	TotalProducts int        `json:"totalProducts"`
}
